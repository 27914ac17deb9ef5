package database

import "database/sql"

// InsertReport stores a rendered analysis report for a user.
func (db *DB) InsertReport(userID string, totalDreams, skipped int, lexiconVersion string, reportJSON []byte) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO analysis_reports (user_id, total_dreams, skipped_records, lexicon_version, report_json)
		VALUES (?, ?, ?, ?, ?)`,
		userID, totalDreams, skipped, lexiconVersion, string(reportJSON),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLatestReport returns the most recent report for a user, or nil if none exists.
func (db *DB) GetLatestReport(userID string) (*StoredReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, user_id, total_dreams, skipped_records, lexicon_version, report_json, generated_at
		FROM analysis_reports WHERE user_id = ? ORDER BY id DESC LIMIT 1`, userID,
	)

	var r StoredReport
	var data string
	if err := row.Scan(&r.ID, &r.UserID, &r.TotalDreams, &r.SkippedRecords,
		&r.LexiconVersion, &data, &r.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	r.ReportJSON = []byte(data)
	return &r, nil
}

// GetReportHistory returns up to limit reports for a user, newest first,
// without their JSON bodies.
func (db *DB) GetReportHistory(userID string, limit int) ([]StoredReport, error) {
	rows, err := db.conn.Query(
		`SELECT id, user_id, total_dreams, skipped_records, lexicon_version, generated_at
		FROM analysis_reports WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		var r StoredReport
		if err := rows.Scan(&r.ID, &r.UserID, &r.TotalDreams, &r.SkippedRecords,
			&r.LexiconVersion, &r.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
