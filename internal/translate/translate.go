// Package translate is the client for the external translation collaborator.
// The collaborator is a black box: text and a target language in, translated
// text out. It may fail independently of the caller; chat delivery degrades
// rather than depending on it.
package translate

import "context"

// Translator converts text into the target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}
