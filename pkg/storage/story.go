package storage

import "database/sql"

// TableName is the single metadata table every query reads from.
const TableName = "metadata_full"

// Story is one row of the metadata store. ID is the table rowid.
type Story struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	Category     string `json:"category"`
	Genre        string `json:"genre"`
	Language     string `json:"language"`
	Status       string `json:"status"`
	Rating       string `json:"rating"`
	WordCount    int    `json:"word_count"`
	ChapterCount int    `json:"chapter_count"`
	Published    string `json:"published"`
	Updated      string `json:"updated"`
	Summary      string `json:"summary"`
	StoryURL     string `json:"story_url"`
	AuthorURL    string `json:"author_url"`
}

// storyColumns is the projection shared by every query that returns stories,
// in the order scanStory expects.
const storyColumns = `rowid, Title, Author, Category, Genre, Language, Status, Rating,
	word_count, chapter_count, Published, Updated, Summary, story_url, author_url`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanStory adapts one result row to a Story. NULL text columns become empty
// strings and NULL counts become zero.
func scanStory(row rowScanner) (Story, error) {
	var s Story
	var title, author, category, genre, language, status sql.NullString
	var rating, published, updated, summary, storyURL, aURL sql.NullString
	var words, chapters sql.NullInt64

	err := row.Scan(&s.ID, &title, &author, &category, &genre, &language, &status, &rating,
		&words, &chapters, &published, &updated, &summary, &storyURL, &aURL)
	if err != nil {
		return Story{}, err
	}

	s.Title = title.String
	s.Author = author.String
	s.Category = category.String
	s.Genre = genre.String
	s.Language = language.String
	s.Status = status.String
	s.Rating = rating.String
	s.WordCount = int(words.Int64)
	s.ChapterCount = int(chapters.Int64)
	s.Published = published.String
	s.Updated = updated.String
	s.Summary = summary.String
	s.StoryURL = storyURL.String
	s.AuthorURL = aURL.String

	return s, nil
}
