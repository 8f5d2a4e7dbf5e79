package service

import (
	"context"
	"errors"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/pkg/mail"
	"fincra-wisdom/pkg/storage"
	"fincra-wisdom/pkg/tasks"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

// memDB is a shared in-memory store behind the fake repositories.
type memDB struct {
	mu            sync.Mutex
	nextID        uint
	circles       map[uint]*model.Circle
	departments   map[uint]*model.Department
	documents     map[uint]*model.Document
	suggestions   map[uint]*model.SuggestedDocument
	notifications []*model.Notification
	users         map[uint]*model.User

	promoteErr   error
	notifyFailTo map[string]bool
}

func newMemDB() *memDB {
	return &memDB{
		circles:      map[uint]*model.Circle{},
		departments:  map[uint]*model.Department{},
		documents:    map[uint]*model.Document{},
		suggestions:  map[uint]*model.SuggestedDocument{},
		users:        map[uint]*model.User{},
		notifyFailTo: map[string]bool{},
	}
}

func (db *memDB) id() uint {
	db.nextID++
	return db.nextID
}

func (db *memDB) addCircle(name string) *model.Circle {
	db.mu.Lock()
	defer db.mu.Unlock()
	c := &model.Circle{ID: db.id(), Name: name, Slug: Slugify(name)}
	db.circles[c.ID] = c
	return c
}

func (db *memDB) addDepartment(c *model.Circle, name string) *model.Department {
	db.mu.Lock()
	defer db.mu.Unlock()
	d := &model.Department{ID: db.id(), Name: name, Slug: Slugify(name), CircleID: c.ID, CircleName: c.Name}
	db.departments[d.ID] = d
	return d
}

func (db *memDB) documentCount(id uint) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.departments[id].DocumentCount
}

func (db *memDB) notificationsFor(email string) []*model.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.Notification
	for _, n := range db.notifications {
		if n.RecipientEmail == email {
			out = append(out, n)
		}
	}
	return out
}

func (db *memDB) documentsIn(departmentID uint) []*model.Document {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*model.Document
	for _, d := range db.documents {
		if d.DepartmentID == departmentID {
			out = append(out, d)
		}
	}
	return out
}

// fakeCircles implements repository.CircleRepository.
type fakeCircles struct{ db *memDB }

func (f fakeCircles) Create(ctx context.Context, c *model.Circle) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.circles {
		if existing.Name == c.Name || existing.Slug == c.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	c.ID = f.db.id()
	cp := *c
	f.db.circles[c.ID] = &cp
	return nil
}

func (f fakeCircles) FindAll(ctx context.Context) ([]model.Circle, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := make([]model.Circle, 0, len(f.db.circles))
	for _, c := range f.db.circles {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f fakeCircles) FindByID(ctx context.Context, id uint) (*model.Circle, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.circles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCircles) FindBySlug(ctx context.Context, slug string) (*model.Circle, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.circles {
		if c.Slug == slug {
			cp := *c
			for _, d := range f.db.departments {
				if d.CircleID == c.ID {
					cp.Departments = append(cp.Departments, *d)
				}
			}
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeCircles) Update(ctx context.Context, c *model.Circle) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for id, existing := range f.db.circles {
		if id != c.ID && (existing.Name == c.Name || existing.Slug == c.Slug) {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *c
	f.db.circles[c.ID] = &cp
	return nil
}

func (f fakeCircles) DeleteCascade(ctx context.Context, id uint) ([]uint, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.circles[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	var docIDs []uint
	for deptID, d := range f.db.departments {
		if d.CircleID != id {
			continue
		}
		for docID, doc := range f.db.documents {
			if doc.DepartmentID == deptID {
				docIDs = append(docIDs, docID)
				delete(f.db.documents, docID)
			}
		}
		delete(f.db.departments, deptID)
	}
	delete(f.db.circles, id)
	return docIDs, nil
}

// fakeDepartments implements repository.DepartmentRepository.
type fakeDepartments struct{ db *memDB }

func (f fakeDepartments) Create(ctx context.Context, d *model.Department) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, existing := range f.db.departments {
		if existing.CircleID == d.CircleID && existing.Slug == d.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	d.ID = f.db.id()
	cp := *d
	f.db.departments[d.ID] = &cp
	return nil
}

func (f fakeDepartments) FindByID(ctx context.Context, id uint) (*model.Department, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	d, ok := f.db.departments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (f fakeDepartments) FindByCircle(ctx context.Context, circleID uint) ([]model.Department, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var out []model.Department
	for _, d := range f.db.departments {
		if d.CircleID == circleID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f fakeDepartments) Update(ctx context.Context, d *model.Department) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.departments[d.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Name, stored.Slug = d.Name, d.Slug
	stored.TeamLead, stored.TeamLeadEmail = d.TeamLead, d.TeamLeadEmail
	stored.Description, stored.Icon = d.Description, d.Icon
	return nil
}

func (f fakeDepartments) DeleteCascade(ctx context.Context, id uint) ([]uint, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.departments[id]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	var docIDs []uint
	for docID, doc := range f.db.documents {
		if doc.DepartmentID == id {
			docIDs = append(docIDs, docID)
			delete(f.db.documents, docID)
		}
	}
	delete(f.db.departments, id)
	return docIDs, nil
}

// fakeDocuments implements repository.DocumentRepository.
type fakeDocuments struct{ db *memDB }

// insertDocument must be called with db.mu held.
func (db *memDB) insertDocument(doc *model.Document) error {
	dept, ok := db.departments[doc.DepartmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if doc.SuggestionID != nil {
		for _, existing := range db.documents {
			if existing.SuggestionID != nil && *existing.SuggestionID == *doc.SuggestionID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	doc.ID = db.id()
	cp := *doc
	db.documents[doc.ID] = &cp
	dept.DocumentCount++
	return nil
}

func (f fakeDocuments) CreateWithCount(ctx context.Context, doc *model.Document) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return f.db.insertDocument(doc)
}

func (f fakeDocuments) FindByID(ctx context.Context, id uint) (*model.Document, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	d, ok := f.db.documents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (f fakeDocuments) FindByIDs(ctx context.Context, ids []uint) ([]model.Document, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.Document{}
	for _, id := range ids {
		if d, ok := f.db.documents[id]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f fakeDocuments) FindByDepartment(ctx context.Context, departmentID uint) ([]model.Document, error) {
	var out []model.Document
	for _, d := range f.db.documentsIn(departmentID) {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}

func (f fakeDocuments) IncrementViews(ctx context.Context, id uint, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	d, ok := f.db.documents[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.ViewCount++
	d.LastViewedAt = &at
	return nil
}

func (f fakeDocuments) IncrementDownloads(ctx context.Context, id uint) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	d, ok := f.db.documents[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.DownloadCount++
	return nil
}

func (f fakeDocuments) sorted(less func(a, b *model.Document) bool, limit int) []model.Document {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := make([]*model.Document, 0, len(f.db.documents))
	for _, d := range f.db.documents {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })
	out := []model.Document{}
	for i := 0; i < len(all) && i < limit; i++ {
		out = append(out, *all[i])
	}
	return out
}

func (f fakeDocuments) Recent(ctx context.Context, limit int) ([]model.Document, error) {
	return f.sorted(func(a, b *model.Document) bool { return a.PublishedAt.After(b.PublishedAt) }, limit), nil
}

func (f fakeDocuments) Popular(ctx context.Context, limit int) ([]model.Document, error) {
	return f.sorted(func(a, b *model.Document) bool { return a.ViewCount > b.ViewCount }, limit), nil
}

func (f fakeDocuments) Search(ctx context.Context, query string, limit int) ([]model.Document, error) {
	terms := strings.Fields(strings.ToLower(query))
	matches := f.sorted(func(a, b *model.Document) bool { return a.ViewCount > b.ViewCount }, len(f.db.documents))
	out := []model.Document{}
	for _, d := range matches {
		ok := true
		for _, term := range terms {
			if !strings.Contains(d.SearchableText, term) {
				ok = false
				break
			}
		}
		if ok && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}

// fakeSuggestions implements repository.SuggestionRepository.
type fakeSuggestions struct{ db *memDB }

func (f fakeSuggestions) Create(ctx context.Context, s *model.SuggestedDocument) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s.ID = f.db.id()
	s.CreatedAt = time.Now().Add(time.Duration(s.ID) * time.Millisecond)
	cp := *s
	f.db.suggestions[s.ID] = &cp
	return nil
}

func (f fakeSuggestions) FindByID(ctx context.Context, id uint) (*model.SuggestedDocument, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.suggestions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f fakeSuggestions) FindAll(ctx context.Context, status string) ([]model.SuggestedDocument, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.SuggestedDocument{}
	for _, s := range f.db.suggestions {
		if status == "" || s.Status == status {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeSuggestions) Update(ctx context.Context, s *model.SuggestedDocument) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	cp := *s
	f.db.suggestions[s.ID] = &cp
	return nil
}

func (f fakeSuggestions) Delete(ctx context.Context, id uint) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	delete(f.db.suggestions, id)
	return nil
}

// Promote mirrors the transactional repository: all three writes or none.
func (f fakeSuggestions) Promote(ctx context.Context, suggestionID uint, doc *model.Document) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.promoteErr != nil {
		return f.db.promoteErr
	}
	if _, ok := f.db.suggestions[suggestionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	if err := f.db.insertDocument(doc); err != nil {
		return err
	}
	delete(f.db.suggestions, suggestionID)
	return nil
}

// fakeNotifications implements repository.NotificationRepository.
type fakeNotifications struct{ db *memDB }

func (f fakeNotifications) Create(ctx context.Context, n *model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.notifyFailTo[n.RecipientEmail] {
		return errors.New("insert failed")
	}
	n.ID = f.db.id()
	n.CreatedAt = time.Now().Add(time.Duration(n.ID) * time.Millisecond)
	cp := *n
	f.db.notifications = append(f.db.notifications, &cp)
	return nil
}

func (f fakeNotifications) FindByRecipient(ctx context.Context, email string, limit int) ([]model.Notification, error) {
	list := f.db.notificationsFor(email)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	out := []model.Notification{}
	for i := 0; i < len(list) && i < limit; i++ {
		out = append(out, *list[i])
	}
	return out, nil
}

func (f fakeNotifications) CountUnread(ctx context.Context, email string) (int64, error) {
	var count int64
	for _, n := range f.db.notificationsFor(email) {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

func (f fakeNotifications) FindForRecipient(ctx context.Context, id uint, email string) (*model.Notification, error) {
	for _, n := range f.db.notificationsFor(email) {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f fakeNotifications) MarkRead(ctx context.Context, id uint, email string) error {
	for _, n := range f.db.notificationsFor(email) {
		if n.ID == id {
			n.Read = true
		}
	}
	return nil
}

func (f fakeNotifications) MarkAllRead(ctx context.Context, email string) (int64, error) {
	var updated int64
	for _, n := range f.db.notificationsFor(email) {
		if !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

// fakeStorage implements FileStorage.
type fakeStorage struct {
	mu        sync.Mutex
	uploaded  map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploaded[objectName] = data
	return &storage.UploadResult{URL: "http://files.local/" + objectName, PublicID: objectName}, nil
}

func (s *fakeStorage) Delete(ctx context.Context, publicID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, publicID)
	delete(s.uploaded, publicID)
	return nil
}

func (s *fakeStorage) DownloadURL(ctx context.Context, publicID, fileName string, expiry time.Duration) (string, error) {
	return "http://files.local/" + publicID + "?signed=1", nil
}

// fakeMailer implements mail.Sender.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []mail.Message
	err   error
	block bool
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.sent {
		out = append(out, msg.To...)
	}
	return out
}

// fakePublisher implements IndexPublisher.
type fakePublisher struct {
	mu        sync.Mutex
	published []tasks.DocumentIndexTask
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, task tasks.DocumentIndexTask) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, task)
	return nil
}
