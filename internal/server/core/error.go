package core

// Error codes
const (
	ErrGameNotFound       = "GAME_NOT_FOUND"
	ErrInvalidMove        = "INVALID_MOVE"
	ErrMalformedNotation  = "MALFORMED_NOTATION"
	ErrInvalidFEN         = "INVALID_FEN"
	ErrPromotionPending   = "PROMOTION_PENDING"
	ErrNoPromotionPending = "NO_PROMOTION_PENDING"
	ErrNotHumanTurn       = "NOT_HUMAN_TURN"
	ErrNotOracleTurn      = "NOT_ORACLE_TURN"
	ErrOracleBusy         = "ORACLE_BUSY"
	ErrOracleFailure      = "ORACLE_FAILURE"
	ErrGameOver           = "GAME_OVER"
	ErrRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent     = "INVALID_CONTENT_TYPE"
	ErrInvalidRequest     = "INVALID_REQUEST"
	ErrInternalError      = "INTERNAL_ERROR"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
