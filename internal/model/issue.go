package model

// Issue is a denormalized snapshot of a catalog issue, copied into a
// collection at the moment the user adds it. It is never re-synced against
// the catalog afterwards — if the catalog edits the record, the collection
// keeps what the user originally saved.
//
// ID is the external catalog identifier (e.g. "4050-100") and is the
// dedup key within a collection.
type Issue struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IssueNumber string `json:"issueNumber"`
	Description string `json:"description"`
	VolumeID    string `json:"volumeId"`
	VolumeName  string `json:"volumeName"`
	Year        string `json:"year"`
	CoverURL    string `json:"coverUrl"`
}

// TokenPair bundles the two credentials issued by a successful login or
// refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
