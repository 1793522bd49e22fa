package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/booklend/apiserver/config"
	"github.com/booklend/apiserver/internal/services"
	"github.com/booklend/apiserver/internal/storage"
	"github.com/booklend/apiserver/internal/store"
	"github.com/booklend/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory stand-in for the postgres repositories, including
// the one-open-rental-per-book unique index.
type memStore struct {
	authors   map[string]types.Author
	libraries map[string]types.Library
	books     map[string]types.Book
	users     map[string]types.User
	rentals   map[string]types.Rental
}

func newMemStore() *memStore {
	return &memStore{
		authors:   make(map[string]types.Author),
		libraries: make(map[string]types.Library),
		books:     make(map[string]types.Book),
		users:     make(map[string]types.User),
		rentals:   make(map[string]types.Rental),
	}
}

// deleteBook removes a book and, like the schema's ON DELETE CASCADE, every
// rental referencing it.
func (s *memStore) deleteBook(id string) {
	delete(s.books, id)
	for rentalID, rental := range s.rentals {
		if rental.BookID == id {
			delete(s.rentals, rentalID)
		}
	}
}

type authorRepo struct{ s *memStore }

func (r authorRepo) List(ctx context.Context) ([]types.Author, error) {
	authors := make([]types.Author, 0, len(r.s.authors))
	for _, author := range r.s.authors {
		authors = append(authors, author)
	}
	return authors, nil
}

func (r authorRepo) Get(ctx context.Context, id string) (types.Author, error) {
	author, ok := r.s.authors[id]
	if !ok {
		return types.Author{}, store.ErrNotFound
	}
	return author, nil
}

func (r authorRepo) GetByName(ctx context.Context, name string) (types.Author, error) {
	for _, author := range r.s.authors {
		if author.Name == name {
			return author, nil
		}
	}
	return types.Author{}, store.ErrNotFound
}

func (r authorRepo) Create(ctx context.Context, author types.Author) (types.Author, error) {
	if _, err := r.GetByName(ctx, author.Name); err == nil {
		return types.Author{}, store.ErrConflict
	}
	author.ID = uuid.NewString()
	r.s.authors[author.ID] = author
	return author, nil
}

func (r authorRepo) Update(ctx context.Context, author types.Author) (types.Author, error) {
	if _, ok := r.s.authors[author.ID]; !ok {
		return types.Author{}, store.ErrNotFound
	}
	r.s.authors[author.ID] = author
	return author, nil
}

func (r authorRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.authors[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.authors, id)
	for bookID, book := range r.s.books {
		if book.AuthorID != nil && *book.AuthorID == id {
			r.s.deleteBook(bookID)
		}
	}
	return nil
}

type libraryRepo struct{ s *memStore }

func (r libraryRepo) List(ctx context.Context) ([]types.Library, error) {
	libraries := make([]types.Library, 0, len(r.s.libraries))
	for _, library := range r.s.libraries {
		libraries = append(libraries, library)
	}
	return libraries, nil
}

func (r libraryRepo) Get(ctx context.Context, id string) (types.Library, error) {
	library, ok := r.s.libraries[id]
	if !ok {
		return types.Library{}, store.ErrNotFound
	}
	return library, nil
}

func (r libraryRepo) GetByCity(ctx context.Context, city string) ([]types.Library, error) {
	libraries := make([]types.Library, 0)
	for _, library := range r.s.libraries {
		if library.City == city {
			libraries = append(libraries, library)
		}
	}
	return libraries, nil
}

func (r libraryRepo) Create(ctx context.Context, library types.Library) (types.Library, error) {
	library.ID = uuid.NewString()
	r.s.libraries[library.ID] = library
	return library, nil
}

func (r libraryRepo) Update(ctx context.Context, library types.Library) (types.Library, error) {
	if _, ok := r.s.libraries[library.ID]; !ok {
		return types.Library{}, store.ErrNotFound
	}
	r.s.libraries[library.ID] = library
	return library, nil
}

func (r libraryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.libraries[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.libraries, id)
	for bookID, book := range r.s.books {
		if book.LibraryID != nil && *book.LibraryID == id {
			r.s.deleteBook(bookID)
		}
	}
	return nil
}

type bookRepo struct{ s *memStore }

func (r bookRepo) List(ctx context.Context) ([]types.Book, error) {
	books := make([]types.Book, 0, len(r.s.books))
	for _, book := range r.s.books {
		books = append(books, book)
	}
	return books, nil
}

func (r bookRepo) Get(ctx context.Context, id string) (types.Book, error) {
	book, ok := r.s.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return book, nil
}

func (r bookRepo) GetByName(ctx context.Context, name string) (types.Book, error) {
	for _, book := range r.s.books {
		if book.Name == name {
			return book, nil
		}
	}
	return types.Book{}, store.ErrNotFound
}

func (r bookRepo) Create(ctx context.Context, book types.Book) (types.Book, error) {
	if _, err := r.GetByName(ctx, book.Name); err == nil {
		return types.Book{}, store.ErrConflict
	}
	book.ID = uuid.NewString()
	r.s.books[book.ID] = book
	return book, nil
}

func (r bookRepo) Update(ctx context.Context, book types.Book) (types.Book, error) {
	if _, ok := r.s.books[book.ID]; !ok {
		return types.Book{}, store.ErrNotFound
	}
	r.s.books[book.ID] = book
	return book, nil
}

func (r bookRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.books[id]; !ok {
		return store.ErrNotFound
	}
	r.s.deleteBook(id)
	return nil
}

type userRepo struct{ s *memStore }

func (r userRepo) List(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		users = append(users, user)
	}
	return users, nil
}

func (r userRepo) Get(ctx context.Context, id string) (types.User, error) {
	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r userRepo) GetByName(ctx context.Context, name string) (types.User, error) {
	for _, user := range r.s.users {
		if user.Name == name {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range r.s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r userRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if _, err := r.GetByEmail(ctx, user.Email); err == nil {
		return types.User{}, store.ErrConflict
	}
	if _, err := r.GetByName(ctx, user.Name); err == nil {
		return types.User{}, store.ErrConflict
	}
	user.ID = uuid.NewString()
	r.s.users[user.ID] = user
	return user, nil
}

func (r userRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := r.s.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	r.s.users[user.ID] = user
	return user, nil
}

func (r userRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.users, id)
	for rentalID, rental := range r.s.rentals {
		if rental.UserID == id {
			delete(r.s.rentals, rentalID)
		}
	}
	return nil
}

type rentalRepo struct{ s *memStore }

func (r rentalRepo) List(ctx context.Context) ([]types.Rental, error) {
	rentals := make([]types.Rental, 0, len(r.s.rentals))
	for _, rental := range r.s.rentals {
		rentals = append(rentals, rental)
	}
	return rentals, nil
}

func (r rentalRepo) ListByUser(ctx context.Context, userID string) ([]types.Rental, error) {
	rentals := make([]types.Rental, 0)
	for _, rental := range r.s.rentals {
		if rental.UserID == userID {
			rentals = append(rentals, rental)
		}
	}
	return rentals, nil
}

func (r rentalRepo) Get(ctx context.Context, id string) (types.Rental, error) {
	rental, ok := r.s.rentals[id]
	if !ok {
		return types.Rental{}, store.ErrNotFound
	}
	return rental, nil
}

func (r rentalRepo) GetActiveByBook(ctx context.Context, bookID string) (types.Rental, error) {
	for _, rental := range r.s.rentals {
		if rental.BookID == bookID && rental.Active() {
			return rental, nil
		}
	}
	return types.Rental{}, store.ErrNotFound
}

func (r rentalRepo) Create(ctx context.Context, rental types.Rental) (types.Rental, error) {
	if rental.ReturnedAt == nil {
		if _, err := r.GetActiveByBook(ctx, rental.BookID); err == nil {
			return types.Rental{}, store.ErrConflict
		}
	}
	rental.ID = uuid.NewString()
	if rental.RentedAt.IsZero() {
		rental.RentedAt = time.Now()
	}
	r.s.rentals[rental.ID] = rental
	return rental, nil
}

func (r rentalRepo) Update(ctx context.Context, rental types.Rental) (types.Rental, error) {
	if _, ok := r.s.rentals[rental.ID]; !ok {
		return types.Rental{}, store.ErrNotFound
	}
	if rental.ReturnedAt == nil {
		if active, err := r.GetActiveByBook(ctx, rental.BookID); err == nil && active.ID != rental.ID {
			return types.Rental{}, store.ErrConflict
		}
	}
	r.s.rentals[rental.ID] = rental
	return rental, nil
}

func (r rentalRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.s.rentals[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.rentals, id)
	return nil
}

// fakeObjectStore is an in-memory ObjectStorage backend for cover tests.
type fakeObjectStore struct {
	objects map[string]coverObject
}

type coverObject struct {
	data        []byte
	contentType string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string]coverObject)}
}

func (f *fakeObjectStore) EnsureBucket(ctx context.Context) error { return nil }

func (f *fakeObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = coverObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj, ok := f.objects[key]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) Bucket() string { return "test-bucket" }

// testEnv wires the full route table over the in-memory store.
type testEnv struct {
	router *chi.Mux
	store  *memStore
	cfg    config.AuthConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCovers(t, nil)
}

func newTestEnvWithCovers(t *testing.T, covers *storage.Storage) *testEnv {
	t.Helper()

	cfg := config.AuthConfig{Secret: "test-secret", TokenTTL: time.Hour}
	mem := newMemStore()

	userService := services.NewUserService(userRepo{mem}, nil)
	authorService := services.NewAuthorService(authorRepo{mem})
	libraryService := services.NewLibraryService(libraryRepo{mem})
	bookService := services.NewBookService(bookRepo{mem}, covers)
	rentalService := services.NewRentalService(rentalRepo{mem}, bookRepo{mem}, nil, nil)

	authMiddleware := RequireAuth(cfg)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, cfg)
	})
	router.Route("/authors", func(r chi.Router) {
		AuthorRouter(r, authorService, authMiddleware)
	})
	router.Route("/libraries", func(r chi.Router) {
		LibraryRouter(r, libraryService, authMiddleware)
	})
	router.Route("/books", func(r chi.Router) {
		BookRouter(r, bookService, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, authMiddleware)
	})
	router.Route("/rentals", func(r chi.Router) {
		RentalRouter(r, rentalService, authMiddleware)
	})

	return &testEnv{router: router, store: mem, cfg: cfg}
}

// do performs a request against the route table. A non-nil body is sent as
// JSON; a non-empty token goes into the Authorization header.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&value))
	return value
}

// register creates an account through the API and returns it with a token.
func (e *testEnv) register(t *testing.T, name, email, password string) (types.User, string) {
	t.Helper()

	recorder := e.do(t, http.MethodPost, "/auth/register", "", RegisterRequest{
		Name: name, Email: email, Password: password,
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	resp := decodeBody[AuthResponse](t, recorder)
	return resp.User, resp.Token
}

// registerSuperuser registers an account, flips the superuser flag in the
// store, and re-authenticates so the returned token carries the role.
func (e *testEnv) registerSuperuser(t *testing.T, name, email, password string) (types.User, string) {
	t.Helper()

	user, _ := e.register(t, name, email, password)
	stored := e.store.users[user.ID]
	stored.IsSuperuser = true
	e.store.users[user.ID] = stored
	user.IsSuperuser = true

	recorder := e.do(t, http.MethodPost, "/auth/token", "", TokenRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeBody[TokenResponse](t, recorder)
	return user, resp.AccessToken
}

// uploadCover PUTs a multipart cover file with an explicit content type.
func (e *testEnv) uploadCover(t *testing.T, token, bookID string, data []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formFieldCover, "cover.png"))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, "/books/"+bookID+"/cover", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}
