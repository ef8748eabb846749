// Package wire defines the message ids and JSON payload shapes exchanged over
// the framed transport (see internal/protocol). Opcodes mirror the style of
// the teacher's client/server packet constants: one named const per message,
// grouped client-to-server then server-to-client.
package wire

// Client-to-server message ids.
const (
	Register          uint16 = 0x0001
	Login             uint16 = 0x0002
	FindMatch         uint16 = 0x0010
	CancelFindMatch   uint16 = 0x0011
	FindAIMatch       uint16 = 0x0012
	MakeMove          uint16 = 0x0020
	Resign            uint16 = 0x0021
	OfferDraw         uint16 = 0x0022
	AcceptDraw        uint16 = 0x0023
	DeclineDraw       uint16 = 0x0024
	Challenge         uint16 = 0x0025
	AcceptChallenge   uint16 = 0x0026
	DeclineChallenge  uint16 = 0x0027
)

// Server-to-client message ids.
const (
	RegisterResult       uint16 = 0x1001
	LoginResult          uint16 = 0x1002
	OnlineUsersList      uint16 = 0x1004
	MatchFound           uint16 = 0x1100
	GameStart            uint16 = 0x1101
	GameStateUpdate      uint16 = 0x1200
	InvalidMove          uint16 = 0x1201
	GameOver             uint16 = 0x1202
	DrawOfferReceived    uint16 = 0x1203
	DrawOfferDeclined    uint16 = 0x1204
	ChallengeReceived    uint16 = 0x1205
	ChallengeAccepted    uint16 = 0x1206
	ChallengeDeclined    uint16 = 0x1207
	InternalError        uint16 = 0x1F00
	StateError           uint16 = 0x1F01
	DomainError          uint16 = 0x1F02
)

// Name returns a human-readable label for an opcode, for logging.
func Name(id uint16) string {
	if n, ok := names[id]; ok {
		return n
	}
	return "UNKNOWN"
}

var names = map[uint16]string{
	Register:         "REGISTER",
	Login:            "LOGIN",
	FindMatch:        "FIND_MATCH",
	CancelFindMatch:  "CANCEL_FIND_MATCH",
	FindAIMatch:      "FIND_AI_MATCH",
	MakeMove:         "MAKE_MOVE",
	Resign:           "RESIGN",
	OfferDraw:        "OFFER_DRAW",
	AcceptDraw:       "ACCEPT_DRAW",
	DeclineDraw:      "DECLINE_DRAW",
	Challenge:        "CHALLENGE",
	AcceptChallenge:  "ACCEPT_CHALLENGE",
	DeclineChallenge: "DECLINE_CHALLENGE",

	RegisterResult:    "REGISTER_RESULT",
	LoginResult:       "LOGIN_RESULT",
	OnlineUsersList:   "ONLINE_USERS_LIST",
	MatchFound:        "MATCH_FOUND",
	GameStart:         "GAME_START",
	GameStateUpdate:   "GAME_STATE_UPDATE",
	InvalidMove:       "INVALID_MOVE",
	GameOver:          "GAME_OVER",
	DrawOfferReceived: "DRAW_OFFER_RECEIVED",
	DrawOfferDeclined: "DRAW_OFFER_DECLINED",
	ChallengeReceived: "CHALLENGE_RECEIVED",
	ChallengeAccepted: "CHALLENGE_ACCEPTED",
	ChallengeDeclined: "CHALLENGE_DECLINED",
	InternalError:     "INTERNAL_ERROR",
	StateError:        "STATE_ERROR",
	DomainError:       "DOMAIN_ERROR",
}
