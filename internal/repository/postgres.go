package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vaughan-dsouza/BeSocial/internal/models"
)

const uniqueViolation = "23505"

// NewPostgres wraps an open, migrated database.
func NewPostgres(db *sqlx.DB) *Repositories {
	return &Repositories{
		Users:   &pgUsers{db: db},
		Posts:   &pgPosts{db: db},
		Backend: "postgres",
		ping:    db.PingContext,
		close:   func(context.Context) error { return db.Close() },
	}
}

// validUUID guards queries against malformed ids, which Postgres would
// otherwise reject with a cast error instead of "no rows".
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type pgUsers struct {
	db *sqlx.DB
}

const userColumns = `id, first_name, last_name, email, password_hash, picture_path,
	picture_public_id, location, occupation, viewed_profile, impressions, created_at, updated_at`

func (r *pgUsers) Create(ctx context.Context, u *models.User) error {
	u.ID = uuid.NewString()

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, picture_path,
			picture_public_id, location, occupation, viewed_profile, impressions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, u.ID, u.FirstName, u.LastName, u.Email, u.Password, u.PicturePath,
		u.PicturePublicID, u.Location, u.Occupation, u.ViewedProfile, u.Impressions,
	).Scan(&u.CreatedAt, &u.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		u.ID = ""
		return ErrDuplicate
	}
	if err != nil {
		u.ID = ""
		return fmt.Errorf("repository: insert user: %w", err)
	}
	u.Friends = []string{}
	return nil
}

func (r *pgUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	if !validUUID(id) {
		return models.User{}, ErrNotFound
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *pgUsers) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *pgUsers) getOne(ctx context.Context, query string, arg any) (models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("repository: get user: %w", err)
	}

	if err := r.db.SelectContext(ctx, &u.Friends, `
		SELECT friend_id::text FROM user_friends
		WHERE user_id=$1
		ORDER BY created_at
	`, u.ID); err != nil {
		return models.User{}, fmt.Errorf("repository: get friends: %w", err)
	}
	if u.Friends == nil {
		u.Friends = []string{}
	}
	return u, nil
}

func (r *pgUsers) ListByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []models.User{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, valid)
	if err != nil {
		return nil, fmt.Errorf("repository: build user list: %w", err)
	}

	var rows []models.User
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("repository: list users: %w", err)
	}

	byID := make(map[string]models.User, len(rows))
	for _, u := range rows {
		u.Friends = []string{}
		byID[u.ID] = u
	}
	out := make([]models.User, 0, len(rows))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *pgUsers) AddFriend(ctx context.Context, userID, friendID string) error {
	return r.inTx(ctx, userID, friendID, `
		INSERT INTO user_friends (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT DO NOTHING
	`)
}

func (r *pgUsers) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return r.inTx(ctx, userID, friendID, `
		DELETE FROM user_friends
		WHERE (user_id=$1 AND friend_id=$2) OR (user_id=$2 AND friend_id=$1)
	`)
}

func (r *pgUsers) inTx(ctx context.Context, userID, friendID, stmt string) error {
	if !validUUID(userID) || !validUUID(friendID) {
		return ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE users SET updated_at=NOW() WHERE id IN ($1, $2)`, userID, friendID)
	if err != nil {
		return fmt.Errorf("repository: touch users: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 2 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, stmt, userID, friendID); err != nil {
		return fmt.Errorf("repository: update friends: %w", err)
	}
	return tx.Commit()
}

func (r *pgUsers) UpdatePicture(ctx context.Context, id, picturePath, publicID string) (models.User, error) {
	if !validUUID(id) {
		return models.User{}, ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET picture_path=$1, picture_public_id=$2, updated_at=NOW() WHERE id=$3
	`, picturePath, publicID, id)
	if err != nil {
		return models.User{}, fmt.Errorf("repository: update picture: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.User{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *pgUsers) AddCounters(ctx context.Context, id string, views, impressions int64) error {
	if !validUUID(id) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET viewed_profile = viewed_profile + $1, impressions = impressions + $2
		WHERE id=$3
	`, views, impressions, id)
	if err != nil {
		return fmt.Errorf("repository: update counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type pgPosts struct {
	db *sqlx.DB
}

const postColumns = `id, user_id, first_name, last_name, location, description, picture_path,
	picture_public_id, user_picture_path, created_at, updated_at`

func (r *pgPosts) Create(ctx context.Context, p *models.Post) error {
	p.ID = uuid.NewString()

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO posts (id, user_id, first_name, last_name, location, description,
			picture_path, picture_public_id, user_picture_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, p.ID, p.UserID, p.FirstName, p.LastName, p.Location, p.Description,
		p.PicturePath, p.PicturePublicID, p.UserPicturePath,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		p.ID = ""
		return fmt.Errorf("repository: insert post: %w", err)
	}
	p.Likes = map[string]bool{}
	p.Comments = []string{}
	return nil
}

func (r *pgPosts) GetByID(ctx context.Context, id string) (models.Post, error) {
	if !validUUID(id) {
		return models.Post{}, ErrNotFound
	}

	var p models.Post
	err := r.db.GetContext(ctx, &p, `SELECT `+postColumns+` FROM posts WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrNotFound
	}
	if err != nil {
		return models.Post{}, fmt.Errorf("repository: get post: %w", err)
	}

	posts := []models.Post{p}
	if err := r.hydrate(ctx, posts); err != nil {
		return models.Post{}, err
	}
	return posts[0], nil
}

func (r *pgPosts) List(ctx context.Context) ([]models.Post, error) {
	return r.selectPosts(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
}

func (r *pgPosts) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	if !validUUID(userID) {
		return []models.Post{}, nil
	}
	return r.selectPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE user_id=$1
		ORDER BY created_at DESC, id DESC
	`, userID)
}

func (r *pgPosts) selectPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	posts := []models.Post{}
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("repository: list posts: %w", err)
	}
	if err := r.hydrate(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// hydrate loads likes and comments for posts in two queries.
func (r *pgPosts) hydrate(ctx context.Context, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
		posts[i].Likes = map[string]bool{}
		posts[i].Comments = []string{}
	}

	query, args, err := sqlx.In(`SELECT post_id::text, user_id::text FROM post_likes WHERE post_id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("repository: build likes query: %w", err)
	}
	var likes []struct {
		PostID string `db:"post_id"`
		UserID string `db:"user_id"`
	}
	if err := r.db.SelectContext(ctx, &likes, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("repository: load likes: %w", err)
	}
	for _, l := range likes {
		posts[index[l.PostID]].Likes[l.UserID] = true
	}

	query, args, err = sqlx.In(`SELECT post_id::text, body FROM post_comments WHERE post_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("repository: build comments query: %w", err)
	}
	var comments []struct {
		PostID string `db:"post_id"`
		Body   string `db:"body"`
	}
	if err := r.db.SelectContext(ctx, &comments, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("repository: load comments: %w", err)
	}
	for _, c := range comments {
		i := index[c.PostID]
		posts[i].Comments = append(posts[i].Comments, c.Body)
	}
	return nil
}

func (r *pgPosts) SetLike(ctx context.Context, postID, userID string, liked bool) (models.Post, bool, error) {
	if !validUUID(userID) {
		return models.Post{}, false, ErrNotFound
	}
	stmt := `DELETE FROM post_likes WHERE post_id=$1 AND user_id=$2`
	if liked {
		stmt = `INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	}
	post, n, err := r.mutate(ctx, postID, stmt, userID)
	return post, n > 0, err
}

func (r *pgPosts) AddComment(ctx context.Context, postID, comment string) (models.Post, error) {
	post, _, err := r.mutate(ctx, postID, `INSERT INTO post_comments (post_id, body) VALUES ($1, $2)`, comment)
	return post, err
}

func (r *pgPosts) UpdateDescription(ctx context.Context, postID, description string) (models.Post, error) {
	post, _, err := r.mutate(ctx, postID, `UPDATE posts SET description=$2 WHERE id=$1`, description)
	return post, err
}

// mutate runs stmt($1 = postID, $2 = arg) after bumping updated_at, all in one
// transaction, and returns the rows stmt affected. Touching the post first
// locks its row, which serialises concurrent mutations of one post.
func (r *pgPosts) mutate(ctx context.Context, postID, stmt string, arg any) (models.Post, int64, error) {
	if !validUUID(postID) {
		return models.Post{}, 0, ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Post{}, 0, fmt.Errorf("repository: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE posts SET updated_at=$2 WHERE id=$1`, postID, time.Now().UTC())
	if err != nil {
		return models.Post{}, 0, fmt.Errorf("repository: touch post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Post{}, 0, ErrNotFound
	}

	res, err = tx.ExecContext(ctx, stmt, postID, arg)
	if err != nil {
		return models.Post{}, 0, fmt.Errorf("repository: update post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Post{}, 0, fmt.Errorf("repository: update post: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Post{}, 0, fmt.Errorf("repository: commit: %w", err)
	}
	post, err := r.GetByID(ctx, postID)
	return post, affected, err
}

func (r *pgPosts) Delete(ctx context.Context, postID string) error {
	if !validUUID(postID) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, postID)
	if err != nil {
		return fmt.Errorf("repository: delete post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
