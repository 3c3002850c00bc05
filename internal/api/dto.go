package api

import "github.com/mmcdole/perch/internal/domain"

// BoardResponse mirrors /api/board.
type BoardResponse struct {
	Name      string `json:"name"`
	UpdatedAt int64  `json:"updatedAt"`
}

// EntryListResponse mirrors /api/entries.
type EntryListResponse struct {
	Items []EntryDTO `json:"items"`
}

// EntryDTO is an entry in transport form.
type EntryDTO struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	URL       string   `json:"url,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Done      bool     `json:"done"`
	Pinned    bool     `json:"pinned"`
	UpdatedAt int64    `json:"updatedAt"`
}

// ErrorResponse is the body the API sends with 4xx/5xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MapEntry converts a transport entry to the domain type.
// Unknown kinds fall back to note.
func MapEntry(dto EntryDTO) domain.Entry {
	kind := domain.EntryKind(dto.Kind)
	if !kind.Valid() {
		kind = domain.KindNote
	}
	return domain.Entry{
		ID:        dto.ID,
		Kind:      kind,
		Title:     dto.Title,
		Body:      dto.Body,
		URL:       dto.URL,
		Tags:      dto.Tags,
		Done:      dto.Done,
		Pinned:    dto.Pinned,
		UpdatedAt: dto.UpdatedAt,
	}
}

// MapEntries converts a slice of transport entries.
func MapEntries(dtos []EntryDTO) []domain.Entry {
	entries := make([]domain.Entry, 0, len(dtos))
	for _, dto := range dtos {
		entries = append(entries, MapEntry(dto))
	}
	return entries
}

// ToDTO converts a domain entry to transport form. Pending is local only.
func ToDTO(e domain.Entry) EntryDTO {
	return EntryDTO{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Title:     e.Title,
		Body:      e.Body,
		URL:       e.URL,
		Tags:      e.Tags,
		Done:      e.Done,
		Pinned:    e.Pinned,
		UpdatedAt: e.UpdatedAt,
	}
}
