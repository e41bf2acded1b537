package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vaughan-dsouza/BeSocial/internal/handlers"
	"github.com/vaughan-dsouza/BeSocial/internal/media"
	"github.com/vaughan-dsouza/BeSocial/internal/models"
	"github.com/vaughan-dsouza/BeSocial/internal/repository"
	"github.com/vaughan-dsouza/BeSocial/internal/services"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "router-test-secret"

type testApp struct {
	t      *testing.T
	srv    *httptest.Server
	assets string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	prev := log.Logger
	log.Logger = zerolog.New(io.Discard)
	t.Cleanup(func() { log.Logger = prev })

	assets := t.TempDir()
	images, err := media.NewLocal(assets, "/assets")
	if err != nil {
		t.Fatal(err)
	}
	repos := repository.NewMemory()

	h := handlers.NewHandler(
		services.NewAuthService(repos.Users, testSecret, "1h").WithCost(bcrypt.MinCost),
		services.NewUserService(repos.Users, images),
		services.NewPostService(repos.Posts, repos.Users, images),
		repos,
	)
	router := NewRouter(RouterConfig{
		JWTSecret:    testSecret,
		MaxBodyBytes: 1 << 20,
		CORSOrigins:  []string{"*"},
		AssetsDir:    assets,
		UploadFolder: "Social App",
	}, h, images)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{t: t, srv: srv, assets: assets}
}

func (a *testApp) do(method, path, token, contentType string, body io.Reader) *http.Response {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	if err != nil {
		a.t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	a.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) doJSON(method, path, token string, body any) *http.Response {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	return a.do(method, path, token, "application/json", r)
}

// multipartBody builds a form; a file part named "picture" is added when file is non-empty.
func multipartBody(t *testing.T, fields map[string]string, fileName string, file []byte) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if len(file) > 0 {
		fw, err := mw.CreateFormFile("picture", fileName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return mw.FormDataContentType(), &buf
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: status = %d, want %d (%s)", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, b)
	}
}

// register creates a user through the JSON endpoint and logs in.
func (a *testApp) register(first, email string) (models.User, string) {
	a.t.Helper()
	resp := a.doJSON(http.MethodPost, "/auth/register", "", map[string]string{
		"firstName": first,
		"lastName":  "Tester",
		"email":     email,
		"password":  "secret123",
	})
	expectStatus(a.t, resp, http.StatusCreated)

	resp = a.doJSON(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "secret123",
	})
	expectStatus(a.t, resp, http.StatusOK)
	res := decode[services.LoginResult](a.t, resp)
	if res.Token == "" {
		a.t.Fatal("login returned no token")
	}
	return res.User, res.Token
}

func TestRegisterAndLogin(t *testing.T) {
	app := newTestApp(t)

	ct, body := multipartBody(t, map[string]string{
		"firstName":  "Ada",
		"lastName":   "Lovelace",
		"email":      "Ada@Example.com",
		"password":   "secret123",
		"location":   "London",
		"occupation": "Engineer",
	}, "me.png", []byte("png bytes"))
	resp := app.do(http.MethodPost, "/auth/register", "", ct, body)
	expectStatus(t, resp, http.StatusCreated)

	raw, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(raw), "password") || strings.Contains(string(raw), "$2a$") {
		t.Fatalf("register response leaks password: %s", raw)
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		t.Fatal(err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email = %q, want lower-cased", user.Email)
	}
	if !strings.HasPrefix(user.PicturePath, "/assets/") || !strings.HasSuffix(user.PicturePath, "-me.png") {
		t.Errorf("picturePath = %q", user.PicturePath)
	}

	t.Run("duplicate email", func(t *testing.T) {
		resp := app.doJSON(http.MethodPost, "/auth/register", "", map[string]string{
			"firstName": "Ada", "lastName": "Again", "email": "ada@example.com", "password": "secret123",
		})
		expectStatus(t, resp, http.StatusConflict)
	})

	t.Run("validation", func(t *testing.T) {
		resp := app.doJSON(http.MethodPost, "/auth/register", "", map[string]string{
			"firstName": "A", "email": "not-an-email", "password": "x",
		})
		expectStatus(t, resp, http.StatusBadRequest)
		if got := decode[map[string]string](t, resp)["error"]; got == "" {
			t.Error("expected an error message")
		}
	})

	tests := []struct {
		name     string
		email    string
		password string
		want     int
	}{
		{"ok", "ada@example.com", "secret123", http.StatusOK},
		{"mixed case email", "ADA@example.com", "secret123", http.StatusOK},
		{"wrong password", "ada@example.com", "nope-nope", http.StatusBadRequest},
		{"unknown user", "bob@example.com", "secret123", http.StatusBadRequest},
		{"missing password", "ada@example.com", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run("login "+tt.name, func(t *testing.T) {
			resp := app.doJSON(http.MethodPost, "/auth/login", "", map[string]string{
				"email": tt.email, "password": tt.password,
			})
			expectStatus(t, resp, tt.want)
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/posts"},
		{http.MethodGet, "/users/abc"},
		{http.MethodPatch, "/posts/abc/like"},
	}
	for _, p := range paths {
		resp := app.do(p.method, p.path, "", "", nil)
		expectStatus(t, resp, http.StatusForbidden)
		if got := decode[map[string]string](t, resp)["error"]; got != "access denied" {
			t.Errorf("%s %s: error = %q", p.method, p.path, got)
		}

		resp = app.do(p.method, p.path, "not-a-jwt", "", nil)
		expectStatus(t, resp, http.StatusUnauthorized)
	}
}

func TestPostLifecycle(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.register("Alice", "alice@example.com")
	bob, bobToken := app.register("Bob", "bob@example.com")

	t.Run("create without file", func(t *testing.T) {
		ct, body := multipartBody(t, map[string]string{"description": "no picture"}, "", nil)
		resp := app.do(http.MethodPost, "/posts", aliceToken, ct, body)
		expectStatus(t, resp, http.StatusBadRequest)
		if got := decode[map[string]string](t, resp)["message"]; got != "File upload failed." {
			t.Errorf("message = %q", got)
		}
	})

	ct, body := multipartBody(t, map[string]string{
		"description": "hello world",
		"userId":      bob.ID,
	}, "sunset.jpg", []byte("jpeg bytes"))
	resp := app.do(http.MethodPost, "/posts", aliceToken, ct, body)
	expectStatus(t, resp, http.StatusCreated)
	feed := decode[[]models.Post](t, resp)
	if len(feed) != 1 {
		t.Fatalf("feed length = %d, want 1", len(feed))
	}
	post := feed[0]
	if post.UserID != alice.ID {
		t.Errorf("author = %q, want caller %q", post.UserID, alice.ID)
	}
	if post.FirstName != "Alice" || post.Description != "hello world" {
		t.Errorf("post = %+v", post)
	}

	t.Run("picture served from assets", func(t *testing.T) {
		resp := app.do(http.MethodGet, post.PicturePath, "", "", nil)
		expectStatus(t, resp, http.StatusOK)
		b, _ := io.ReadAll(resp.Body)
		if string(b) != "jpeg bytes" {
			t.Errorf("asset body = %q", b)
		}
	})

	t.Run("feed and user posts", func(t *testing.T) {
		resp := app.do(http.MethodGet, "/posts", bobToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if got := decode[[]models.Post](t, resp); len(got) != 1 {
			t.Errorf("feed length = %d", len(got))
		}

		resp = app.do(http.MethodGet, "/posts/"+alice.ID+"/posts", bobToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if got := decode[[]models.Post](t, resp); len(got) != 1 || got[0].ID != post.ID {
			t.Errorf("user posts = %+v", got)
		}

		resp = app.do(http.MethodGet, "/posts/"+bob.ID+"/posts", bobToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if got := decode[[]models.Post](t, resp); len(got) != 0 {
			t.Errorf("bob has %d posts", len(got))
		}

		resp = app.do(http.MethodGet, "/posts/"+post.ID, bobToken, "", nil)
		expectStatus(t, resp, http.StatusOK)

		resp = app.do(http.MethodGet, "/posts/missing", bobToken, "", nil)
		expectStatus(t, resp, http.StatusNotFound)
	})

	t.Run("like toggles", func(t *testing.T) {
		resp := app.do(http.MethodPatch, "/posts/"+post.ID+"/like", bobToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if liked := decode[models.Post](t, resp); !liked.Likes[bob.ID] {
			t.Fatalf("likes = %v", liked.Likes)
		}

		resp = app.do(http.MethodGet, "/users/"+alice.ID, aliceToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if u := decode[models.User](t, resp); u.Impressions != 1 {
			t.Errorf("impressions = %d, want 1", u.Impressions)
		}

		resp = app.do(http.MethodPatch, "/posts/"+post.ID+"/like", bobToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if unliked := decode[models.Post](t, resp); len(unliked.Likes) != 0 {
			t.Fatalf("likes after second toggle = %v", unliked.Likes)
		}
	})

	t.Run("comment", func(t *testing.T) {
		resp := app.doJSON(http.MethodPost, "/posts/"+post.ID+"/comments", bobToken, map[string]string{"comment": "nice"})
		expectStatus(t, resp, http.StatusCreated)
		if got := decode[models.Post](t, resp); len(got.Comments) != 1 || got.Comments[0] != "nice" {
			t.Errorf("comments = %v", got.Comments)
		}

		resp = app.doJSON(http.MethodPost, "/posts/"+post.ID+"/comments", bobToken, map[string]string{"comment": ""})
		expectStatus(t, resp, http.StatusBadRequest)
	})

	t.Run("only the author edits", func(t *testing.T) {
		resp := app.doJSON(http.MethodPut, "/posts/"+post.ID, bobToken, map[string]string{"description": "hijacked"})
		expectStatus(t, resp, http.StatusForbidden)

		resp = app.doJSON(http.MethodPut, "/posts/"+post.ID, aliceToken, map[string]string{"description": "edited"})
		expectStatus(t, resp, http.StatusOK)
		if got := decode[models.Post](t, resp); got.Description != "edited" {
			t.Errorf("description = %q", got.Description)
		}
	})

	t.Run("only the author deletes", func(t *testing.T) {
		resp := app.do(http.MethodDelete, "/posts/"+post.ID, bobToken, "", nil)
		expectStatus(t, resp, http.StatusForbidden)

		resp = app.do(http.MethodDelete, "/posts/"+post.ID, aliceToken, "", nil)
		expectStatus(t, resp, http.StatusNoContent)

		resp = app.do(http.MethodGet, "/posts/"+post.ID, aliceToken, "", nil)
		expectStatus(t, resp, http.StatusNotFound)

		name := strings.TrimPrefix(post.PicturePath, "/assets/")
		if _, err := os.Stat(filepath.Join(app.assets, name)); !os.IsNotExist(err) {
			t.Errorf("picture still on disk: %v", err)
		}
	})
}

func TestUserRoutes(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.register("Alice", "alice@example.com")
	bob, bobToken := app.register("Bob", "bob@example.com")

	t.Run("profile views", func(t *testing.T) {
		resp := app.do(http.MethodGet, "/users/"+alice.ID, bobToken, "", nil)
		expectStatus(t, resp, http.StatusOK)

		resp = app.do(http.MethodGet, "/users/"+alice.ID, aliceToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if u := decode[models.User](t, resp); u.ViewedProfile != 1 {
			t.Errorf("viewedProfile = %d, want 1", u.ViewedProfile)
		}

		resp = app.do(http.MethodGet, "/users/nobody", aliceToken, "", nil)
		expectStatus(t, resp, http.StatusNotFound)
	})

	t.Run("friend toggle is symmetric", func(t *testing.T) {
		resp := app.do(http.MethodPatch, "/users/"+alice.ID+"/"+bob.ID, aliceToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		friends := decode[[]models.Friend](t, resp)
		if len(friends) != 1 || friends[0].ID != bob.ID {
			t.Fatalf("alice friends = %+v", friends)
		}

		resp = app.do(http.MethodGet, "/users/"+bob.ID+"/friends", aliceToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if got := decode[[]models.Friend](t, resp); len(got) != 1 || got[0].ID != alice.ID {
			t.Fatalf("bob friends = %+v", got)
		}

		resp = app.do(http.MethodPatch, "/users/"+alice.ID+"/"+bob.ID, aliceToken, "", nil)
		expectStatus(t, resp, http.StatusOK)
		if got := decode[[]models.Friend](t, resp); len(got) != 0 {
			t.Fatalf("alice friends after removal = %+v", got)
		}
	})

	t.Run("friend errors", func(t *testing.T) {
		resp := app.do(http.MethodPatch, "/users/"+alice.ID+"/"+alice.ID, aliceToken, "", nil)
		expectStatus(t, resp, http.StatusBadRequest)

		resp = app.do(http.MethodPatch, "/users/"+alice.ID+"/"+bob.ID, bobToken, "", nil)
		expectStatus(t, resp, http.StatusForbidden)

		resp = app.do(http.MethodPatch, "/users/"+alice.ID+"/ghost", aliceToken, "", nil)
		expectStatus(t, resp, http.StatusNotFound)
	})

	t.Run("update picture", func(t *testing.T) {
		ct, body := multipartBody(t, nil, "avatar.png", []byte("avatar"))
		resp := app.do(http.MethodPut, "/users/"+alice.ID+"/picture", aliceToken, ct, body)
		expectStatus(t, resp, http.StatusOK)
		if u := decode[models.User](t, resp); !strings.HasSuffix(u.PicturePath, "-avatar.png") {
			t.Errorf("picturePath = %q", u.PicturePath)
		}

		ct, body = multipartBody(t, nil, "avatar.png", []byte("avatar"))
		resp = app.do(http.MethodPut, "/users/"+alice.ID+"/picture", bobToken, ct, body)
		expectStatus(t, resp, http.StatusForbidden)

		ct, body = multipartBody(t, nil, "", nil)
		resp = app.do(http.MethodPut, "/users/"+alice.ID+"/picture", aliceToken, ct, body)
		expectStatus(t, resp, http.StatusBadRequest)
	})
}

func TestHealthAndHeaders(t *testing.T) {
	app := newTestApp(t)

	req, _ := http.NewRequest(http.MethodGet, app.srv.URL+"/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)
	if got := decode[map[string]string](t, resp)["status"]; got != "ok" {
		t.Errorf("status = %q", got)
	}

	headers := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"Cross-Origin-Resource-Policy": "cross-origin",
		"Access-Control-Allow-Origin":  "*",
	}
	for k, want := range headers {
		if got := resp.Header.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}

	t.Run("preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, app.srv.URL+"/posts", nil)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			t.Fatalf("preflight status = %d", resp.StatusCode)
		}
		if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch) {
			t.Errorf("allow methods = %q", resp.Header.Get("Access-Control-Allow-Methods"))
		}
	})
}

func (a *testApp) assetFiles() []string {
	a.t.Helper()
	entries, err := os.ReadDir(a.assets)
	if err != nil {
		a.t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRejectedUploadsLeaveNoFiles(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.register("Alice", "alice@example.com")
	_, bobToken := app.register("Bob", "bob@example.com")

	t.Run("foreign picture update", func(t *testing.T) {
		ct, body := multipartBody(t, nil, "evil.png", []byte("evil"))
		resp := app.do(http.MethodPut, "/users/"+alice.ID+"/picture", bobToken, ct, body)
		expectStatus(t, resp, http.StatusForbidden)
		if files := app.assetFiles(); len(files) != 0 {
			t.Fatalf("assets after 403 = %v", files)
		}
	})

	t.Run("invalid registration", func(t *testing.T) {
		ct, body := multipartBody(t, map[string]string{
			"firstName": "Eve", "lastName": "Hacker", "email": "not-an-email", "password": "secret123",
		}, "eve.png", []byte("eve"))
		resp := app.do(http.MethodPost, "/auth/register", "", ct, body)
		expectStatus(t, resp, http.StatusBadRequest)
		if files := app.assetFiles(); len(files) != 0 {
			t.Fatalf("assets after 400 = %v", files)
		}
	})

	t.Run("duplicate registration", func(t *testing.T) {
		ct, body := multipartBody(t, map[string]string{
			"firstName": "Alice", "lastName": "Again", "email": "alice@example.com", "password": "secret123",
		}, "alice.png", []byte("alice"))
		resp := app.do(http.MethodPost, "/auth/register", "", ct, body)
		expectStatus(t, resp, http.StatusConflict)
		if files := app.assetFiles(); len(files) != 0 {
			t.Fatalf("assets after 409 = %v", files)
		}
	})

	t.Run("replaced picture is removed", func(t *testing.T) {
		var last string
		for _, name := range []string{"one.png", "two.png"} {
			ct, body := multipartBody(t, nil, name, []byte(name))
			resp := app.do(http.MethodPut, "/users/"+alice.ID+"/picture", aliceToken, ct, body)
			expectStatus(t, resp, http.StatusOK)
			last = decode[models.User](t, resp).PicturePath
		}
		files := app.assetFiles()
		if len(files) != 1 || "/assets/"+files[0] != last {
			t.Fatalf("assets = %v, want only %s", files, last)
		}
	})
}

func TestFormEncodedBodies(t *testing.T) {
	app := newTestApp(t)
	const form = "application/x-www-form-urlencoded"

	resp := app.do(http.MethodPost, "/auth/register", "", form,
		strings.NewReader("firstName=Carol&lastName=Form&email=carol%40example.com&password=secret123"))
	expectStatus(t, resp, http.StatusCreated)

	resp = app.do(http.MethodPost, "/auth/login", "", form,
		strings.NewReader("email=carol%40example.com&password=secret123"))
	expectStatus(t, resp, http.StatusOK)
	login := decode[services.LoginResult](t, resp)

	ct, body := multipartBody(t, map[string]string{"description": "first"}, "p.png", []byte("p"))
	resp = app.do(http.MethodPost, "/posts", login.Token, ct, body)
	expectStatus(t, resp, http.StatusCreated)
	post := decode[[]models.Post](t, resp)[0]

	resp = app.do(http.MethodPost, "/posts/"+post.ID+"/comments", login.Token, form, strings.NewReader("comment=from+a+form"))
	expectStatus(t, resp, http.StatusCreated)
	if got := decode[models.Post](t, resp); len(got.Comments) != 1 || got.Comments[0] != "from a form" {
		t.Fatalf("comments = %v", got.Comments)
	}

	resp = app.do(http.MethodPut, "/posts/"+post.ID, login.Token, form, strings.NewReader("description=edited"))
	expectStatus(t, resp, http.StatusOK)
	if got := decode[models.Post](t, resp); got.Description != "edited" {
		t.Fatalf("description = %q", got.Description)
	}

	resp = app.do(http.MethodPost, "/auth/login", "", form, strings.NewReader("email=carol%40example.com"))
	expectStatus(t, resp, http.StatusBadRequest)
}
