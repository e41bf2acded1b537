package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vaughan-dsouza/BeSocial/internal/models"
)

// NewMemory returns repositories that keep everything in process memory.
func NewMemory() *Repositories {
	return &Repositories{
		Users:   &memoryUsers{byID: map[string]*models.User{}},
		Posts:   &memoryPosts{byID: map[string]*models.Post{}},
		Backend: "memory",
	}
}

type memoryUsers struct {
	mu   sync.RWMutex
	byID map[string]*models.User
}

func (m *memoryUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Friends == nil {
		u.Friends = []string{}
	}
	stored := cloneUser(*u)
	m.byID[u.ID] = &stored
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return cloneUser(*u), nil
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(*u), nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *memoryUsers) ListByIDs(_ context.Context, ids []string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out = append(out, cloneUser(*u))
		}
	}
	return out, nil
}

func (m *memoryUsers) AddFriend(_ context.Context, userID, friendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, f, err := m.pair(userID, friendID)
	if err != nil {
		return err
	}
	if !u.HasFriend(friendID) {
		u.Friends = append(u.Friends, friendID)
	}
	if !f.HasFriend(userID) {
		f.Friends = append(f.Friends, userID)
	}
	now := time.Now().UTC()
	u.UpdatedAt, f.UpdatedAt = now, now
	return nil
}

func (m *memoryUsers) RemoveFriend(_ context.Context, userID, friendID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, f, err := m.pair(userID, friendID)
	if err != nil {
		return err
	}
	u.Friends = without(u.Friends, friendID)
	f.Friends = without(f.Friends, userID)
	now := time.Now().UTC()
	u.UpdatedAt, f.UpdatedAt = now, now
	return nil
}

func (m *memoryUsers) pair(userID, friendID string) (*models.User, *models.User, error) {
	u, ok := m.byID[userID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	f, ok := m.byID[friendID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return u, f, nil
}

func (m *memoryUsers) UpdatePicture(_ context.Context, id, picturePath, publicID string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	u.PicturePath = picturePath
	u.PicturePublicID = publicID
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(*u), nil
}

func (m *memoryUsers) AddCounters(_ context.Context, id string, views, impressions int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.ViewedProfile += views
	u.Impressions += impressions
	return nil
}

type memoryPosts struct {
	mu   sync.RWMutex
	byID map[string]*models.Post
	seq  int64
	// order breaks CreatedAt ties so "newest first" is stable.
	order map[string]int64
}

func (m *memoryPosts) Create(_ context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.order == nil {
		m.order = map[string]int64{}
	}
	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Likes == nil {
		p.Likes = map[string]bool{}
	}
	if p.Comments == nil {
		p.Comments = []string{}
	}
	m.seq++
	m.order[p.ID] = m.seq
	stored := clonePost(*p)
	m.byID[p.ID] = &stored
	return nil
}

func (m *memoryPosts) GetByID(_ context.Context, id string) (models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.byID[id]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	return clonePost(*p), nil
}

func (m *memoryPosts) List(_ context.Context) ([]models.Post, error) {
	return m.filter(func(*models.Post) bool { return true }), nil
}

func (m *memoryPosts) ListByUser(_ context.Context, userID string) ([]models.Post, error) {
	return m.filter(func(p *models.Post) bool { return p.UserID == userID }), nil
}

func (m *memoryPosts) filter(keep func(*models.Post) bool) []models.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Post, 0, len(m.byID))
	for _, p := range m.byID {
		if keep(p) {
			out = append(out, clonePost(*p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.order[out[i].ID] > m.order[out[j].ID]
	})
	return out
}

func (m *memoryPosts) SetLike(_ context.Context, postID, userID string, liked bool) (models.Post, bool, error) {
	var changed bool
	post, err := m.update(postID, func(p *models.Post) {
		changed = p.Likes[userID] != liked
		if liked {
			p.Likes[userID] = true
		} else {
			delete(p.Likes, userID)
		}
	})
	return post, changed, err
}

func (m *memoryPosts) AddComment(_ context.Context, postID, comment string) (models.Post, error) {
	return m.update(postID, func(p *models.Post) {
		p.Comments = append(p.Comments, comment)
	})
}

func (m *memoryPosts) UpdateDescription(_ context.Context, postID, description string) (models.Post, error) {
	return m.update(postID, func(p *models.Post) {
		p.Description = description
	})
}

func (m *memoryPosts) update(postID string, fn func(*models.Post)) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[postID]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	fn(p)
	p.UpdatedAt = time.Now().UTC()
	return clonePost(*p), nil
}

func (m *memoryPosts) Delete(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[postID]; !ok {
		return ErrNotFound
	}
	delete(m.byID, postID)
	delete(m.order, postID)
	return nil
}

func cloneUser(u models.User) models.User {
	u.Friends = append([]string{}, u.Friends...)
	return u
}

func clonePost(p models.Post) models.Post {
	likes := make(map[string]bool, len(p.Likes))
	for k, v := range p.Likes {
		likes[k] = v
	}
	p.Likes = likes
	p.Comments = append([]string{}, p.Comments...)
	return p
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
