package storage

import (
	"database/sql"
	"fmt"
)

// RecordNewGame asynchronously records a new game
func (s *Store) RecordNewGame(record GameRecord) error {
	return s.enqueue("game", func(tx *sql.Tx) error {
		query := `INSERT INTO games (
			game_id, initial_fen,
			white_player_id, white_type, white_oracle,
			black_player_id, black_type, black_oracle,
			start_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.GameID, record.InitialFEN,
			record.WhitePlayerID, record.WhiteType, record.WhiteOracle,
			record.BlackPlayerID, record.BlackType, record.BlackOracle,
			record.StartTimeUTC,
		)
		return err
	})
}

// UpdatePlayers asynchronously rewrites the player columns of a game
func (s *Store) UpdatePlayers(record GameRecord) error {
	return s.enqueue("players", func(tx *sql.Tx) error {
		query := `UPDATE games SET
			white_player_id = ?, white_type = ?, white_oracle = ?,
			black_player_id = ?, black_type = ?, black_oracle = ?
		WHERE game_id = ?`

		_, err := tx.Exec(query,
			record.WhitePlayerID, record.WhiteType, record.WhiteOracle,
			record.BlackPlayerID, record.BlackType, record.BlackOracle,
			record.GameID,
		)
		return err
	})
}

// RecordMove asynchronously records a move
func (s *Store) RecordMove(record MoveRecord) error {
	return s.enqueue("move", func(tx *sql.Tx) error {
		query := `INSERT INTO moves (
			game_id, move_number, coordinate, algebraic, fen_after_move, player_color, oracle, move_time_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.GameID, record.MoveNumber, record.Coordinate, record.Algebraic,
			record.FENAfterMove, record.PlayerColor, record.Oracle, record.MoveTimeUTC,
		)
		return err
	})
}

// DeleteUndoneMoves asynchronously deletes moves after undo
func (s *Store) DeleteUndoneMoves(gameID string, afterMoveNumber int) error {
	return s.enqueue("undo", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM moves WHERE game_id = ? AND move_number > ?`, gameID, afterMoveNumber)
		return err
	})
}

// DeleteGame asynchronously deletes a game and, by cascade, its moves
func (s *Store) DeleteGame(gameID string) error {
	return s.enqueue("delete", func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM games WHERE game_id = ?`, gameID)
		return err
	})
}

// QueryGames retrieves games with optional filtering; "" or "*" matches all
func (s *Store) QueryGames(gameID, playerID string) ([]GameRecord, error) {
	query := `SELECT
		game_id, initial_fen,
		white_player_id, white_type, white_oracle,
		black_player_id, black_type, black_oracle,
		start_time_utc
	FROM games WHERE 1=1`

	var args []any

	if gameID != "" && gameID != "*" {
		query += " AND game_id = ?"
		args = append(args, gameID)
	}

	if playerID != "" && playerID != "*" {
		query += " AND (white_player_id = ? OR black_player_id = ?)"
		args = append(args, playerID, playerID)
	}

	query += " ORDER BY start_time_utc DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		err := rows.Scan(
			&g.GameID, &g.InitialFEN,
			&g.WhitePlayerID, &g.WhiteType, &g.WhiteOracle,
			&g.BlackPlayerID, &g.BlackType, &g.BlackOracle,
			&g.StartTimeUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return games, nil
}

// QueryMoves returns the moves of one game in play order
func (s *Store) QueryMoves(gameID string) ([]MoveRecord, error) {
	rows, err := s.db.Query(`SELECT
		move_id, game_id, move_number, coordinate, algebraic, fen_after_move, player_color, oracle, move_time_utc
	FROM moves WHERE game_id = ? ORDER BY move_number`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		err := rows.Scan(
			&m.MoveID, &m.GameID, &m.MoveNumber, &m.Coordinate, &m.Algebraic,
			&m.FENAfterMove, &m.PlayerColor, &m.Oracle, &m.MoveTimeUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return moves, nil
}
