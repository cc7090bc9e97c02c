package store

import (
	"database/sql"

	"github.com/realmlist/metarboard/internal/models"
)

// InsertBoardMessage records a rendered board text and sets m.ID.
func (s *Store) InsertBoardMessage(m *models.BoardMessage) error {
	if m.RenderedAt.IsZero() {
		m.RenderedAt = s.now()
	}
	result, err := s.db.Exec(`
		INSERT INTO board_messages (tick_id, rendered_at, station_id, kind, category, no_data, text, sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.TickID, m.RenderedAt.UTC(), m.StationID, string(m.Kind), nullString(string(m.Category)),
		m.NoData, m.Text, m.Sent)
	if err != nil {
		return err
	}
	m.ID, err = result.LastInsertId()
	return err
}

// MarkBoardMessageSent flags a message as delivered to at least one sink.
func (s *Store) MarkBoardMessageSent(id int64) error {
	_, err := s.db.Exec(`UPDATE board_messages SET sent = TRUE WHERE id = ?`, id)
	return err
}

// LastBoardMessage returns the most recent message, or nil when there is none.
func (s *Store) LastBoardMessage() (*models.BoardMessage, error) {
	msgs, err := s.RecentBoardMessages(1)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

// RecentBoardMessages returns up to limit messages, newest first.
func (s *Store) RecentBoardMessages(limit int) ([]models.BoardMessage, error) {
	rows, err := s.db.Query(`
		SELECT id, tick_id, rendered_at, station_id, kind, category, no_data, text, sent
		FROM board_messages
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.BoardMessage
	for rows.Next() {
		var m models.BoardMessage
		var kind string
		var category sql.NullString
		if err := rows.Scan(&m.ID, &m.TickID, &m.RenderedAt, &m.StationID, &kind, &category,
			&m.NoData, &m.Text, &m.Sent); err != nil {
			return nil, err
		}
		m.Kind = models.ReportKind(kind)
		m.Category = models.FlightCategory(category.String)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
