package source

// songsResponse is the envelope for song list endpoints
type songsResponse struct {
	Songs []songDTO `json:"songs"`
}

// songDTO is the wire representation of a content item
type songDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	SortTitle string `json:"sortTitle,omitempty"`
	Kind      string `json:"kind"` // "text" or "file"
	Text      string `json:"text,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Pages     int    `json:"pages,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
	AddedAt   int64  `json:"addedAt,omitempty"`
}

// setlistsResponse is the envelope for the setlist list endpoint
type setlistsResponse struct {
	Setlists []setlistDTO `json:"setlists"`
}

// setlistDTO is the wire representation of a setlist
type setlistDTO struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	SongIDs   []string `json:"songIds"`
	UpdatedAt int64    `json:"updatedAt,omitempty"`
}

// libraryResponse carries library-level metadata
type libraryResponse struct {
	UpdatedAt int64 `json:"updatedAt"`
}
