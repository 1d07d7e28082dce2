package models

// FileRecord describes a single stored file.
// The server is the source of truth for every field except OrderIndex,
// which is a client-session presentation artifact (see filesync.Reorder).
type FileRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`

	// Tags is always non-nil after ingestion; the server may omit the field.
	Tags []string `json:"tags"`

	Views int `json:"views"`

	// OrderIndex is never sent to or received from the server.
	OrderIndex int `json:"-"`
}

// Clone returns a deep copy of the record.
func (f FileRecord) Clone() FileRecord {
	out := f
	out.Tags = make([]string, len(f.Tags))
	copy(out.Tags, f.Tags)
	return out
}

// TagsUpdateRequest is the payload for PATCH /file/{id}/tags.
type TagsUpdateRequest struct {
	Tags []string `json:"tags"`
}

// RenameRequest is the payload for PATCH /file/{id}/rename.
type RenameRequest struct {
	NewName string `json:"newName"`
}

// LogoutRequest carries the refresh token to invalidate on POST /auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}
