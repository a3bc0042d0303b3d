// Package wire defines the event catalog and payload schemas of the
// real-time gateway. Every inbound payload validates its required fields at
// the boundary; handlers never see a partially formed request.
package wire

// Inbound event names.
const (
	EvIdentify         = "identify"
	EvStartGame        = "start-game"
	EvCancelRequest    = "cancel-request"
	EvJoiningGame      = "joining-game"
	EvResignGame       = "resign-game"
	EvWinGame          = "win-game"
	EvDrawGame         = "draw-game"
	EvUpdateBoard      = "update-board"
	EvSendDrawProposal = "send-draw-proposal"
	EvRejectedProposal = "rejected-draw-proposal"
	EvSendMessage      = "send-message"
	EvSendAnswer       = "send-answer"
	EvIceCandidateA    = "IceCandidateA"
	EvIceCandidateB    = "IceCandidateB"
)

// Outbound event names.
const (
	EvError              = "error"
	EvWait               = "wait"
	EvGameStarted        = "game-started"
	EvJoinGame           = "join-game"
	EvJoined             = "joined"
	EvNewBoard           = "newBoard"
	EvDrawProposal       = "draw-proposal"
	EvRejectedProposalTo = "rejected-proposal"
	EvNewMessage         = "new-message"
	EvAnswered           = "answered"
	EvFirstIceCandidate  = "first-IceCandidate"
	EvSecondIceCandidate = "second-IceCandidate"
	EvGameOver           = "game-over"
)
