package slot

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-news-slate/internal/entity"
)

var (
	ErrNotInitialized    = errors.New("board not initialized")
	ErrUnknownPost       = errors.New("unknown post")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInFlight          = errors.New("post is already being published")
	ErrNotClaimed        = errors.New("post was not claimed")
)

var transitions = map[entity.PostStatus][]entity.PostStatus{
	entity.PostStatusPending: {entity.PostStatusReady, entity.PostStatusNoArticle},
	entity.PostStatusReady:   {entity.PostStatusPosted, entity.PostStatusFailed},
	entity.PostStatusFailed:  {entity.PostStatusReady},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to entity.PostStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Board owns the nine scheduled posts of one civic day. All methods are safe for
// concurrent use and return copies, so callers never hold references into the board.
type Board struct {
	mu       sync.Mutex
	date     string
	posts    [entity.SlotCount]entity.ScheduledPost
	inFlight map[string]bool
	now      func() time.Time
}

// NewBoard returns an empty board. Initialize must be called before use.
func NewBoard() *Board {
	return &Board{inFlight: map[string]bool{}, now: time.Now}
}

// Initialize creates the nine pending posts for date. Calling it again for the same date
// leaves the board untouched and returns false.
func (b *Board) Initialize(date string, quote entity.BrandQuote) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.date == date {
		return false
	}

	now := b.now()
	for i, s := range entity.TimeSlots() {
		post := entity.ScheduledPost{
			ID:        entity.PostID(date, s.PostNumber),
			Date:      date,
			Slot:      s,
			Status:    entity.PostStatusPending,
			UpdatedAt: now,
		}
		if s.IncludeQuote {
			q := quote
			post.Quote = &q
		}
		b.posts[i] = post
	}
	b.date = date
	b.inFlight = map[string]bool{}
	return true
}

// Date returns the civic date the board holds, or "" before initialization.
func (b *Board) Date() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.date
}

// AssignResult counts the outcome of an assignment pass.
type AssignResult struct {
	Ready     int `json:"ready"`
	NoArticle int `json:"no_article"`
	Skipped   int `json:"skipped"`
}

// Assign binds selected articles to pending posts by (category, rank). Posts whose article
// is missing become no-article. Posts that already left pending are not touched.
func (b *Board) Assign(selected []entity.SelectedArticle) (AssignResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var res AssignResult
	if b.date == "" {
		return res, ErrNotInitialized
	}

	type key struct {
		category entity.CategoryID
		rank     int
	}
	byKey := make(map[key]entity.SelectedArticle, len(selected))
	for _, a := range selected {
		k := key{a.CategoryID, a.Rank}
		if _, dup := byKey[k]; !dup {
			byKey[k] = a
		}
	}

	now := b.now()
	for i := range b.posts {
		p := &b.posts[i]
		if p.Status != entity.PostStatusPending {
			res.Skipped++
			continue
		}
		if a, ok := byKey[key{p.Slot.CategoryID, p.Slot.Rank}]; ok {
			article := a
			p.Article = &article
			p.Status = entity.PostStatusReady
			res.Ready++
		} else {
			p.Status = entity.PostStatusNoArticle
			res.NoArticle++
		}
		p.UpdatedAt = now
	}
	return res, nil
}

// Post returns a copy of post n (1..9).
func (b *Board) Post(postNumber int) (entity.ScheduledPost, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.date == "" {
		return entity.ScheduledPost{}, ErrNotInitialized
	}
	if postNumber < 1 || postNumber > entity.SlotCount {
		return entity.ScheduledPost{}, fmt.Errorf("%w: number %d", ErrUnknownPost, postNumber)
	}
	return b.posts[postNumber-1], nil
}

// Posts returns copies of all posts in slot order.
func (b *Board) Posts() []entity.ScheduledPost {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.date == "" {
		return nil
	}
	out := make([]entity.ScheduledPost, len(b.posts))
	copy(out, b.posts[:])
	return out
}

// Counts tallies posts by status.
func (b *Board) Counts() map[entity.PostStatus]int {
	counts := map[entity.PostStatus]int{}
	for _, p := range b.Posts() {
		counts[p.Status]++
	}
	return counts
}

func (b *Board) find(id string) (*entity.ScheduledPost, error) {
	if b.date == "" {
		return nil, ErrNotInitialized
	}
	for i := range b.posts {
		if b.posts[i].ID == id {
			return &b.posts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPost, id)
}

func (b *Board) move(p *entity.ScheduledPost, to entity.PostStatus) error {
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, p.ID, p.Status, to)
	}
	p.Status = to
	p.UpdatedAt = b.now()
	return nil
}

// Claim is the compare-and-set guard taken immediately before the external publish call.
// It succeeds only for a ready post nobody else is publishing.
func (b *Board) Claim(id string) (entity.ScheduledPost, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.find(id)
	if err != nil {
		return entity.ScheduledPost{}, err
	}
	if p.Status != entity.PostStatusReady {
		return *p, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, p.Status)
	}
	if b.inFlight[id] {
		return *p, fmt.Errorf("%w: %s", ErrInFlight, id)
	}
	b.inFlight[id] = true
	return *p, nil
}

// Release drops a claim without changing the status.
func (b *Board) Release(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, id)
}

// MarkPosted completes a claimed post.
func (b *Board) MarkPosted(id, externalID, text string, hashtags []string, at time.Time) (entity.ScheduledPost, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.find(id)
	if err != nil {
		return entity.ScheduledPost{}, err
	}
	if !b.inFlight[id] {
		return *p, fmt.Errorf("%w: %s", ErrNotClaimed, id)
	}
	if err := b.move(p, entity.PostStatusPosted); err != nil {
		return *p, err
	}
	delete(b.inFlight, id)
	posted := at
	p.PostedAt = &posted
	p.ExternalID = externalID
	p.Text = text
	p.Hashtags = append([]string(nil), hashtags...)
	p.Error = ""
	return *p, nil
}

// MarkFailed records a failed publish attempt of a claimed post.
func (b *Board) MarkFailed(id, text string, cause error) (entity.ScheduledPost, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.find(id)
	if err != nil {
		return entity.ScheduledPost{}, err
	}
	if !b.inFlight[id] {
		return *p, fmt.Errorf("%w: %s", ErrNotClaimed, id)
	}
	if err := b.move(p, entity.PostStatusFailed); err != nil {
		return *p, err
	}
	delete(b.inFlight, id)
	p.Text = text
	if cause != nil {
		p.Error = cause.Error()
	}
	return *p, nil
}

// ResetFailed moves a failed post back to ready so an operator can retry it.
func (b *Board) ResetFailed(postNumber int) (entity.ScheduledPost, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.date == "" {
		return entity.ScheduledPost{}, ErrNotInitialized
	}
	if postNumber < 1 || postNumber > entity.SlotCount {
		return entity.ScheduledPost{}, fmt.Errorf("%w: number %d", ErrUnknownPost, postNumber)
	}
	p := &b.posts[postNumber-1]
	if p.Status != entity.PostStatusFailed {
		return *p, fmt.Errorf("%w: %s is %s, only failed posts can be reset", ErrInvalidTransition, p.ID, p.Status)
	}
	if err := b.move(p, entity.PostStatusReady); err != nil {
		return *p, err
	}
	p.Error = ""
	return *p, nil
}

// RestorePosted marks a post as already published when the day is rebuilt after a restart.
// Only ready posts can be restored.
func (b *Board) RestorePosted(id, externalID, text string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.find(id)
	if err != nil {
		return err
	}
	if p.Status == entity.PostStatusPosted {
		return nil
	}
	if err := b.move(p, entity.PostStatusPosted); err != nil {
		return err
	}
	posted := at
	p.PostedAt = &posted
	p.ExternalID = externalID
	p.Text = text
	return nil
}

// Resolve returns the post due in the hour of now, if any slot is scheduled then.
// The board must hold the civic date of now.
func (b *Board) Resolve(clock Clock, now time.Time) (entity.ScheduledPost, bool, error) {
	s, ok := clock.SlotAt(now)
	if !ok {
		return entity.ScheduledPost{}, false, nil
	}
	if date, held := clock.Date(now), b.Date(); date != held {
		return entity.ScheduledPost{}, true, fmt.Errorf("%w: board holds %q, slot is on %q", ErrNotInitialized, held, date)
	}
	p, err := b.Post(s.PostNumber)
	return p, true, err
}
