package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vaughan-dsouza/BeSocial/internal/models"
)

// runContract exercises behaviour every backend must share.
func runContract(t *testing.T, repos *Repositories) {
	t.Helper()
	ctx := context.Background()

	newUser := func(t *testing.T, email string) models.User {
		t.Helper()
		u := models.User{FirstName: "Ada", LastName: "Lovelace", Email: email, Password: "hash", Location: "London"}
		if err := repos.Users.Create(ctx, &u); err != nil {
			t.Fatalf("create user %s: %v", email, err)
		}
		return u
	}

	t.Run("users", func(t *testing.T) {
		u := newUser(t, "ada@example.test")
		if u.ID == "" || u.CreatedAt.IsZero() {
			t.Fatalf("create did not assign id/timestamps: %+v", u)
		}

		err := repos.Users.Create(ctx, &models.User{FirstName: "X", LastName: "Y", Email: "ada@example.test", Password: "h"})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("duplicate email: got %v, want ErrDuplicate", err)
		}

		got, err := repos.Users.GetByEmail(ctx, "ada@example.test")
		if err != nil {
			t.Fatalf("GetByEmail: %v", err)
		}
		if got.ID != u.ID || got.Password != "hash" {
			t.Fatalf("GetByEmail = %+v", got)
		}

		for _, id := range []string{"", "not-an-id", "64b7f0c2a1b2c3d4e5f60718", "7c9e6679-7425-40de-944b-e07fc1f90ae7"} {
			if _, err := repos.Users.GetByID(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetByID(%q): got %v, want ErrNotFound", id, err)
			}
		}

		updated, err := repos.Users.UpdatePicture(ctx, u.ID, "https://img.test/a.png", "Social App/a")
		if err != nil {
			t.Fatalf("UpdatePicture: %v", err)
		}
		if updated.PicturePath != "https://img.test/a.png" || updated.PicturePublicID != "Social App/a" {
			t.Fatalf("picture = %q (%q)", updated.PicturePath, updated.PicturePublicID)
		}
		if reread, _ := repos.Users.GetByID(ctx, u.ID); reread.PicturePublicID != "Social App/a" {
			t.Fatalf("public id not persisted: %q", reread.PicturePublicID)
		}

		if err := repos.Users.AddCounters(ctx, u.ID, 2, -1); err != nil {
			t.Fatalf("AddCounters: %v", err)
		}
		got, _ = repos.Users.GetByID(ctx, u.ID)
		if got.ViewedProfile != 2 || got.Impressions != -1 {
			t.Fatalf("counters = %d/%d", got.ViewedProfile, got.Impressions)
		}
	})

	t.Run("friends", func(t *testing.T) {
		a := newUser(t, "a@friends.test")
		b := newUser(t, "b@friends.test")
		c := newUser(t, "c@friends.test")

		if err := repos.Users.AddFriend(ctx, a.ID, b.ID); err != nil {
			t.Fatalf("AddFriend: %v", err)
		}
		if err := repos.Users.AddFriend(ctx, a.ID, c.ID); err != nil {
			t.Fatalf("AddFriend: %v", err)
		}
		// Adding twice must not duplicate.
		if err := repos.Users.AddFriend(ctx, b.ID, a.ID); err != nil {
			t.Fatalf("AddFriend reverse: %v", err)
		}

		ga, _ := repos.Users.GetByID(ctx, a.ID)
		gb, _ := repos.Users.GetByID(ctx, b.ID)
		if len(ga.Friends) != 2 || !ga.HasFriend(b.ID) || !ga.HasFriend(c.ID) {
			t.Fatalf("a.friends = %v", ga.Friends)
		}
		if len(gb.Friends) != 1 || !gb.HasFriend(a.ID) {
			t.Fatalf("b.friends = %v", gb.Friends)
		}

		list, err := repos.Users.ListByIDs(ctx, []string{c.ID, "bogus", b.ID})
		if err != nil {
			t.Fatalf("ListByIDs: %v", err)
		}
		if len(list) != 2 || list[0].ID != c.ID || list[1].ID != b.ID {
			t.Fatalf("ListByIDs order/filter wrong: %+v", list)
		}

		if err := repos.Users.RemoveFriend(ctx, b.ID, a.ID); err != nil {
			t.Fatalf("RemoveFriend: %v", err)
		}
		ga, _ = repos.Users.GetByID(ctx, a.ID)
		gb, _ = repos.Users.GetByID(ctx, b.ID)
		if ga.HasFriend(b.ID) || gb.HasFriend(a.ID) {
			t.Fatalf("friendship not removed on both sides: %v / %v", ga.Friends, gb.Friends)
		}

		if err := repos.Users.AddFriend(ctx, a.ID, "7c9e6679-7425-40de-944b-e07fc1f90ae7"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("AddFriend unknown: got %v", err)
		}
	})

	t.Run("posts", func(t *testing.T) {
		author := newUser(t, "author@posts.test")
		fan := newUser(t, "fan@posts.test")

		first := models.Post{UserID: author.ID, FirstName: "Ada", LastName: "Lovelace", Description: "first", PicturePath: "p1"}
		if err := repos.Posts.Create(ctx, &first); err != nil {
			t.Fatalf("create post: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
		second := models.Post{UserID: fan.ID, FirstName: "Fan", LastName: "Boy", Description: "second", PicturePath: "p2"}
		if err := repos.Posts.Create(ctx, &second); err != nil {
			t.Fatalf("create post: %v", err)
		}

		feed, err := repos.Posts.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(feed) < 2 || feed[0].ID != second.ID {
			t.Fatalf("feed not newest first: %+v", feed)
		}

		mine, err := repos.Posts.ListByUser(ctx, author.ID)
		if err != nil {
			t.Fatalf("ListByUser: %v", err)
		}
		if len(mine) != 1 || mine[0].ID != first.ID {
			t.Fatalf("ListByUser = %+v", mine)
		}

		likeSteps := []struct {
			liked, wantChanged bool
		}{
			{true, true},
			{true, false},
			{false, true},
			{false, false},
		}
		for i, step := range likeSteps {
			post, changed, err := repos.Posts.SetLike(ctx, first.ID, fan.ID, step.liked)
			if err != nil {
				t.Fatalf("step %d SetLike(%v): %v", i, step.liked, err)
			}
			if changed != step.wantChanged {
				t.Fatalf("step %d SetLike(%v) changed = %v, want %v", i, step.liked, changed, step.wantChanged)
			}
			wantLikes := 0
			if step.liked {
				wantLikes = 1
			}
			if post.LikedBy(fan.ID) != step.liked || len(post.Likes) != wantLikes {
				t.Fatalf("step %d likes = %v", i, post.Likes)
			}
		}

		// Racing likes by one user: exactly one of them changes state.
		var (
			wg      sync.WaitGroup
			changes atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, changed, err := repos.Posts.SetLike(ctx, first.ID, fan.ID, true); err == nil && changed {
					changes.Add(1)
				}
			}()
		}
		wg.Wait()
		if got := changes.Load(); got != 1 {
			t.Fatalf("concurrent likes changed state %d times, want 1", got)
		}
		if _, _, err := repos.Posts.SetLike(ctx, first.ID, fan.ID, false); err != nil {
			t.Fatalf("SetLike reset: %v", err)
		}

		if _, err := repos.Posts.AddComment(ctx, first.ID, "nice"); err != nil {
			t.Fatalf("AddComment: %v", err)
		}
		commented, err := repos.Posts.AddComment(ctx, first.ID, "very nice")
		if err != nil {
			t.Fatalf("AddComment: %v", err)
		}
		if len(commented.Comments) != 2 || commented.Comments[0] != "nice" || commented.Comments[1] != "very nice" {
			t.Fatalf("comments = %v", commented.Comments)
		}

		edited, err := repos.Posts.UpdateDescription(ctx, first.ID, "edited")
		if err != nil {
			t.Fatalf("UpdateDescription: %v", err)
		}
		if edited.Description != "edited" || len(edited.Comments) != 2 {
			t.Fatalf("edited = %+v", edited)
		}

		if err := repos.Posts.Delete(ctx, first.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := repos.Posts.GetByID(ctx, first.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetByID after delete: %v", err)
		}
		if err := repos.Posts.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("second Delete: %v", err)
		}
		if _, _, err := repos.Posts.SetLike(ctx, "nope", fan.ID, true); !errors.Is(err, ErrNotFound) {
			t.Fatalf("SetLike unknown post: %v", err)
		}
	})

	if err := repos.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
