package entities

import (
	"time"

	"gorm.io/gorm"
)

type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "want-to-read"
	StatusReading    ReadingStatus = "reading"
	StatusCompleted  ReadingStatus = "completed"
	StatusPaused     ReadingStatus = "paused"
	StatusAbandoned  ReadingStatus = "abandoned"
)

type Source struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:50" json:"name"`   // e.g., "native", "goodreads"
	DisplayName string    `gorm:"size:100" json:"display_name"`      // e.g., "Goodreads export"
	CreatedAt   time.Time `json:"created_at"`
}

type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"uniqueIndex;size:100" json:"username"`
	Email       *string        `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	Token       string         `gorm:"uniqueIndex;size:64" json:"-"` // API token, hidden from JSON
	DisplayName *string        `gorm:"size:100" json:"display_name,omitempty"`
	Bio         *string        `gorm:"type:text" json:"bio,omitempty"`
	ReadingGoal *int           `json:"reading_goal,omitempty"` // Books per year
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// Book is a catalogue entry. Books are private to their owner.
type Book struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index" json:"user_id"`
	Title         string    `gorm:"index;size:512" json:"title"`
	Authors       []string  `gorm:"serializer:json" json:"authors"`
	ISBN13        *string   `gorm:"column:isbn13;index;size:20" json:"isbn13,omitempty"`
	PageCount     *int      `json:"page_count,omitempty"`
	Publisher     *string   `gorm:"size:256" json:"publisher,omitempty"`
	PublishedYear *int      `json:"published_year,omitempty"`
	Description   *string   `gorm:"type:text" json:"description,omitempty"`
	Language      *string   `gorm:"size:16" json:"language,omitempty"`
	CoverURL      *string   `gorm:"size:2048" json:"cover_url,omitempty"`
	ExternalID    *string   `gorm:"size:256" json:"external_id,omitempty"`
	SourceID      *uint     `gorm:"index" json:"source_id,omitempty"`
	Source        *Source   `gorm:"foreignKey:SourceID" json:"source,omitempty"`
	User          User      `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OwnedBook places a book on the owner's shelves. An owner holds a book at
// most once.
type OwnedBook struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"uniqueIndex:idx_owned_user_book" json:"user_id"`
	BookID      uint          `gorm:"uniqueIndex:idx_owned_user_book" json:"book_id"`
	Book        Book          `gorm:"foreignKey:BookID" json:"book"`
	Status      ReadingStatus `gorm:"size:20;default:'want-to-read'" json:"status"`
	CurrentPage *int          `json:"current_page,omitempty"`
	Rating      *int          `json:"rating,omitempty"`
	Review      *string       `gorm:"type:text" json:"review,omitempty"`
	Tags        []string      `gorm:"serializer:json" json:"tags,omitempty"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ReadingSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index" json:"user_id"`
	OwnedBookID     uint      `gorm:"index" json:"owned_book_id"`
	OwnedBook       OwnedBook `gorm:"foreignKey:OwnedBookID" json:"-"`
	StartPage       int       `json:"start_page"`
	EndPage         int       `json:"end_page"`
	SessionDate     time.Time `gorm:"index" json:"session_date"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type WishlistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_wishlist_user_book" json:"user_id"`
	BookID    uint      `gorm:"uniqueIndex:idx_wishlist_user_book" json:"book_id"`
	Book      Book      `gorm:"foreignKey:BookID" json:"book"`
	Priority  *int      `json:"priority,omitempty"`
	Notes     *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Collection struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	UserID      uint             `gorm:"uniqueIndex:idx_collection_user_name" json:"user_id"`
	Name        string           `gorm:"uniqueIndex:idx_collection_user_name;size:200" json:"name"`
	Description *string          `gorm:"type:text" json:"description,omitempty"`
	Items       []CollectionItem `gorm:"foreignKey:CollectionID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// CollectionItem is one owned book in a collection, kept in insertion order.
type CollectionItem struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	CollectionID uint `gorm:"uniqueIndex:idx_collection_item" json:"collection_id"`
	OwnedBookID  uint `gorm:"uniqueIndex:idx_collection_item" json:"owned_book_id"`
	Position     int  `json:"position"`
}

func (Source) TableName() string {
	return "sources"
}

func (User) TableName() string {
	return "users"
}

func (OwnedBook) TableName() string {
	return "owned_books"
}

func (WishlistEntry) TableName() string {
	return "wishlist_entries"
}
