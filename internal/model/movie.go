package model

// Movie is a validated movie record from the metadata API.  Nullable
// upstream fields are pointers; optional ones are omitted when empty.
//
// Fields:
//  ID           – metadata API identifier, unique per movie.
//  PosterPath   – relative poster image path (nil when the API has none).
//  BackdropPath – relative backdrop image path (nil when absent).
//  ReleaseDate  – YYYY-MM-DD, optional.
//  Genres       – only present on detail responses.
//  Runtime      – minutes, only present on detail responses.
type Movie struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	Genres       []Genre `json:"genres,omitempty"`
	Runtime      *int    `json:"runtime,omitempty"`
}

// Genre is a metadata API genre.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieList is one page of a movie listing (now playing, trending, search,
// discover).
type MovieList struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// CastMember is one credited actor.
type CastMember struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ProfilePath *string `json:"profile_path"`
	Character   string  `json:"character"`
}

// Credits lists the cast of one movie.
type Credits struct {
	ID   int64        `json:"id"`
	Cast []CastMember `json:"cast"`
}
