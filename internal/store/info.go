package store

import "context"

// StoreInfo summarizes the database contents.
type StoreInfo struct {
	SchemaVersion    int            `json:"schema_version" yaml:"schema_version"`
	TotalFiles       int            `json:"total_files" yaml:"total_files"`
	TotalAttachments int            `json:"total_attachments" yaml:"total_attachments"`
	FilesByBackend   map[string]int `json:"files_by_backend" yaml:"files_by_backend"`
	UnattachedFiles  int            `json:"unattached_files" yaml:"unattached_files"`
}

// StoreInfo collects counts for the info command.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	info := &StoreInfo{FilesByBackend: map[string]int{}}

	version, err := currentVersion(s.db)
	if err != nil {
		return nil, err
	}
	info.SchemaVersion = version

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&info.TotalFiles); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attachments").Scan(&info.TotalAttachments); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM files WHERE NOT EXISTS (SELECT 1 FROM attachments a WHERE a.file_id = files.id)",
	).Scan(&info.UnattachedFiles); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT backend, COUNT(*) FROM files GROUP BY backend")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var backend string
		var count int
		if err := rows.Scan(&backend, &count); err != nil {
			return nil, err
		}
		info.FilesByBackend[backend] = count
	}
	return info, rows.Err()
}

