package core

// Request types

type CreateGameRequest struct {
	White PlayerConfig  `json:"white" validate:"required"`
	Black PlayerConfig  `json:"black" validate:"required"`
	FEN   string        `json:"fen,omitempty" validate:"omitempty,max=100"`
	Board *[8][8]string `json:"board,omitempty"` // piece codes like "wK", row 0 is rank 8; excludes FEN
	Turn  string        `json:"turn,omitempty" validate:"omitempty,oneof=w b white black"` // side to move with Board
}

type ConfigurePlayersRequest struct {
	White PlayerConfig `json:"white" validate:"required"`
	Black PlayerConfig `json:"black" validate:"required"`
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,min=4,max=5"` // coordinate move, optional promotion letter
}

type PromotionRequest struct {
	Piece string `json:"piece" validate:"required,oneof=q r b n Q R B N"`
}

type UndoRequest struct {
	Count int `json:"count" validate:"omitempty,min=1,max=300"` // 0 means one move
}

// Response types

type GameResponse struct {
	GameID           string          `json:"gameId"`
	FEN              string          `json:"fen"`
	Turn             string          `json:"turn"`   // "w" or "b"
	Status           string          `json:"status"` // "ongoing", "check", "checkmate", "stalemate"
	Outcome          string          `json:"outcome"`
	Moves            []string        `json:"moves"`
	Coordinates      []string        `json:"coordinates"`
	Transcript       string          `json:"transcript"`
	Players          PlayersResponse `json:"players"`
	LastMove         *MoveInfo       `json:"lastMove,omitempty"`
	PromotionPending string          `json:"promotionPending,omitempty"` // square awaiting a piece choice
	OraclePending    bool            `json:"oraclePending"`
	OracleError      string          `json:"oracleError,omitempty"`
	HalfMove         int             `json:"halfMove"`
	FullMove         int             `json:"fullMove"`
}

type MoveInfo struct {
	Move        string `json:"move"`
	Algebraic   string `json:"algebraic"`
	PlayerColor string `json:"playerColor"` // "w" or "b"
	Captured    string `json:"captured,omitempty"`
	Oracle      string `json:"oracle,omitempty"`
}

type BoardResponse struct {
	FEN   string       `json:"fen"`
	Board string       `json:"board"` // ASCII representation
	Grid  [8][8]string `json:"grid"`
}

type LegalMovesResponse struct {
	Square string   `json:"square,omitempty"`
	Moves  []string `json:"moves"`
}

type HintResponse struct {
	Move      string `json:"move"`
	Algebraic string `json:"algebraic"`
	Oracle    string `json:"oracle"`
}
