package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Feed sort orders accepted by ListPosts.
const (
	SortNewest   = "newest"
	SortViews    = "views"
	SortNeighbor = "neighbor"
)

// PostInput carries the writable fields of a post.
type PostInput struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Thumbnail  string   `json:"thumbnail"`
	Categories []string `json:"categories"`
	Images     []string `json:"images"`
}

// Post is a fully hydrated post row with its relations and, when a viewer is
// known, the viewer's like/bookmark flags.
type Post struct {
	PostID     int64     `json:"postId"`
	UserID     int64     `json:"userId"`
	Nickname   string    `json:"nickname"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Thumbnail  string    `json:"thumbnail"`
	ViewCount  int64     `json:"viewCount"`
	LikeCount  int64     `json:"likeCount"`
	Categories []string  `json:"categories"`
	Images     []string  `json:"images"`
	Liked      bool      `json:"liked"`
	Bookmarked bool      `json:"bookmarked"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PostSummary is the feed row shape: no content body or image list.
type PostSummary struct {
	PostID    int64     `json:"postId"`
	UserID    int64     `json:"userId"`
	Nickname  string    `json:"nickname"`
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	ViewCount int64     `json:"viewCount"`
	LikeCount int64     `json:"likeCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListPostsParams selects one page of the post feed. ViewerID is only
// meaningful for the neighbor sort.
type ListPostsParams struct {
	ViewerID int64
	Page     int
	Size     int
	Sort     string
}

// CreatePost inserts the post with its categories and ordered images in one
// transaction.
func (s *Store) CreatePost(ctx context.Context, userID int64, input PostInput) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var postID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO posts (user_id, title, content, thumbnail)
		VALUES ($1, $2, $3, $4)
		RETURNING post_id`,
		userID, input.Title, input.Content, input.Thumbnail,
	).Scan(&postID)
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}

	if err := insertPostRelations(ctx, tx, postID, input); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return postID, nil
}

// UpdatePost rewrites the post's fields and replaces its categories and
// images wholesale.
func (s *Store) UpdatePost(ctx context.Context, postID int64, input PostInput) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE posts
		SET title = $2, content = $3, thumbnail = $4, updated_at = now()
		WHERE post_id = $1`,
		postID, input.Title, input.Content, input.Thumbnail,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM post_images WHERE post_id = $1`, postID); err != nil {
		return err
	}

	if err := insertPostRelations(ctx, tx, postID, input); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertPostRelations(ctx context.Context, tx pgx.Tx, postID int64, input PostInput) error {
	for _, category := range input.Categories {
		_, err := tx.Exec(ctx, `
			INSERT INTO post_categories (post_id, category)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			postID, category,
		)
		if err != nil {
			return fmt.Errorf("create post category: %w", err)
		}
	}

	for position, image := range input.Images {
		_, err := tx.Exec(ctx, `
			INSERT INTO post_images (post_id, position, image)
			VALUES ($1, $2, $3)`,
			postID, position, image,
		)
		if err != nil {
			return fmt.Errorf("create post image: %w", err)
		}
	}

	return nil
}

// DeletePost removes the post; relations cascade.
func (s *Store) DeletePost(ctx context.Context, postID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE post_id = $1`, postID)
	return err
}

// GetPostOwner returns the author's user ID for authorization checks.
func (s *Store) GetPostOwner(ctx context.Context, postID int64) (int64, error) {
	var ownerID int64

	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM posts WHERE post_id = $1`,
		postID,
	).Scan(&ownerID)

	return ownerID, err
}

// GetPost hydrates one post, increments its view count, and resolves the
// viewer's like/bookmark flags. viewerID 0 means anonymous.
func (s *Store) GetPost(ctx context.Context, postID, viewerID int64) (Post, error) {
	var p Post

	err := s.pool.QueryRow(ctx, `
		UPDATE posts
		SET view_count = view_count + 1
		WHERE post_id = $1
		RETURNING post_id, user_id, title, content, thumbnail, view_count, like_count, created_at, updated_at`,
		postID,
	).Scan(&p.PostID, &p.UserID, &p.Title, &p.Content, &p.Thumbnail,
		&p.ViewCount, &p.LikeCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Post{}, err
	}

	if err := s.pool.QueryRow(ctx,
		`SELECT nickname FROM profiles WHERE user_id = $1`,
		p.UserID,
	).Scan(&p.Nickname); err != nil {
		return Post{}, err
	}

	p.Categories, err = s.postCategories(ctx, postID)
	if err != nil {
		return Post{}, err
	}

	p.Images, err = s.postImages(ctx, postID)
	if err != nil {
		return Post{}, err
	}

	if viewerID != 0 {
		err = s.pool.QueryRow(ctx, `
			SELECT
				EXISTS (SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2),
				EXISTS (SELECT 1 FROM post_bookmarks WHERE post_id = $1 AND user_id = $2)`,
			postID, viewerID,
		).Scan(&p.Liked, &p.Bookmarked)
		if err != nil {
			return Post{}, err
		}
	}

	return p, nil
}

func (s *Store) postCategories(ctx context.Context, postID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category FROM post_categories WHERE post_id = $1 ORDER BY category`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (s *Store) postImages(ctx context.Context, postID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT image FROM post_images WHERE post_id = $1 ORDER BY position`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStrings(rows)
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	out := []string{}

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, rows.Err()
}

// ListPosts returns one feed page plus a hasMore flag. It fetches one row
// beyond the page size to detect whether a next page exists.
func (s *Store) ListPosts(ctx context.Context, params ListPostsParams) ([]PostSummary, bool, error) {
	limit := params.Size + 1
	offset := (params.Page - 1) * params.Size

	const base = `
		SELECT p.post_id, p.user_id, pr.nickname, p.title, p.thumbnail,
		       p.view_count, p.like_count, p.created_at
		FROM posts p
		JOIN profiles pr ON pr.user_id = p.user_id`

	var (
		rows pgx.Rows
		err  error
	)

	switch params.Sort {
	case SortViews:
		rows, err = s.pool.Query(ctx,
			base+` ORDER BY p.view_count DESC, p.post_id DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)

	case SortNeighbor:
		rows, err = s.pool.Query(ctx,
			base+`
			JOIN neighbors n ON n.follows_to = p.user_id AND n.user_id = $3
			ORDER BY p.created_at DESC, p.post_id DESC LIMIT $1 OFFSET $2`,
			limit, offset, params.ViewerID,
		)

	default:
		rows, err = s.pool.Query(ctx,
			base+` ORDER BY p.created_at DESC, p.post_id DESC LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	posts := []PostSummary{}
	for rows.Next() {
		var p PostSummary
		if err := rows.Scan(&p.PostID, &p.UserID, &p.Nickname, &p.Title, &p.Thumbnail,
			&p.ViewCount, &p.LikeCount, &p.CreatedAt); err != nil {
			return nil, false, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(posts) > params.Size
	if hasMore {
		posts = posts[:params.Size]
	}

	return posts, hasMore, nil
}

// ToggleLike flips the viewer's like on the post and keeps the denormalized
// like_count in step. Returns the new liked state and count.
func (s *Store) ToggleLike(ctx context.Context, postID, userID int64) (bool, int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
		postID, userID,
	)
	if err != nil {
		return false, 0, err
	}

	liked := tag.RowsAffected() == 0
	delta := int64(-1)

	if liked {
		if _, err := tx.Exec(ctx,
			`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`,
			postID, userID,
		); err != nil {
			return false, 0, err
		}
		delta = 1
	}

	var likeCount int64
	err = tx.QueryRow(ctx, `
		UPDATE posts
		SET like_count = like_count + $2
		WHERE post_id = $1
		RETURNING like_count`,
		postID, delta,
	).Scan(&likeCount)
	if err != nil {
		return false, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, 0, err
	}

	return liked, likeCount, nil
}

// ToggleBookmark flips the viewer's bookmark on the post and returns the new
// state.
func (s *Store) ToggleBookmark(ctx context.Context, postID, userID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM post_bookmarks WHERE post_id = $1 AND user_id = $2`,
		postID, userID,
	)
	if err != nil {
		return false, err
	}

	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO post_bookmarks (post_id, user_id) VALUES ($1, $2)`,
		postID, userID,
	)
	if err != nil {
		return false, err
	}

	return true, nil
}
