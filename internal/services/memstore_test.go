package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/db/repositories"
	"github.com/blokid/blokid-backend/internal/notify"
	"github.com/blokid/blokid-backend/internal/permissions"
)

// memDB is an in-memory record store that enforces the same uniqueness rules
// as the PostgreSQL schema. The three views below expose it through the
// repository method sets.
type memDB struct {
	mu          sync.Mutex
	seq         int
	users       map[string]models.User
	orgs        map[string]models.Organization
	sites       map[string]models.Website
	orgMembers  []models.OrganizationMember
	siteMembers []models.WebsiteMember
	writes      int
	err         error
	// beforeMemberInsert runs with mu held at the start of AddMember, standing
	// in for a concurrent request that commits between a caller's membership
	// check and its insert.
	beforeMemberInsert func(db *memDB)
}

func newMemDB() *memDB {
	return &memDB{
		users: map[string]models.User{},
		orgs:  map[string]models.Organization{},
		sites: map[string]models.Website{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) userByEmail(email string) (models.User, bool) {
	for _, u := range db.users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

func (db *memDB) orgRole(userID, orgID string) (auth.Role, bool) {
	for _, m := range db.orgMembers {
		if m.UserID == userID && m.OrganizationID == orgID {
			return m.Role, true
		}
	}
	return "", false
}

func (db *memDB) siteRole(userID, siteID string) (auth.Role, bool) {
	for _, m := range db.siteMembers {
		if m.UserID == userID && m.WebsiteID == siteID {
			return m.Role, true
		}
	}
	return "", false
}

func (db *memDB) addOrgMember(m *models.OrganizationMember) error {
	if _, ok := db.orgRole(m.UserID, m.OrganizationID); ok {
		return repositories.ErrDuplicate
	}
	m.ID = db.nextID("om")
	m.CreatedAt = time.Now()
	db.orgMembers = append(db.orgMembers, *m)
	db.writes++
	return nil
}

func (db *memDB) addSiteMember(m *models.WebsiteMember) error {
	if _, ok := db.siteRole(m.UserID, m.WebsiteID); ok {
		return repositories.ErrDuplicate
	}
	m.ID = db.nextID("wm")
	m.CreatedAt = time.Now()
	db.siteMembers = append(db.siteMembers, *m)
	db.writes++
	return nil
}

func sortedSites(in []models.Website) []models.Website {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
	return in
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type memUsers struct{ db *memDB }

func (s memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.err != nil {
		return nil, s.db.err
	}
	u, ok := s.db.userByEmail(email)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s memUsers) CreateUserWithOrganization(_ context.Context, user *models.User, org *models.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.err != nil {
		return s.db.err
	}
	if _, ok := s.db.userByEmail(user.Email); ok {
		return repositories.ErrDuplicate
	}
	user.ID = s.db.nextID("user")
	user.CreatedAt = time.Now()
	s.db.users[user.ID] = *user

	org.ID = s.db.nextID("org")
	org.OwnerID = user.ID
	org.CreatedAt = time.Now()
	s.db.orgs[org.ID] = *org

	return s.db.addOrgMember(&models.OrganizationMember{
		UserID:         user.ID,
		OrganizationID: org.ID,
		Role:           auth.RoleOrganizationAdmin,
	})
}

// ---------------------------------------------------------------------------
// Organizations
// ---------------------------------------------------------------------------

type memOrgs struct{ db *memDB }

func (s memOrgs) GetByID(_ context.Context, id string) (*models.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.err != nil {
		return nil, s.db.err
	}
	o, ok := s.db.orgs[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s memOrgs) CreateWithAdmin(_ context.Context, org *models.Organization) (*models.OrganizationMember, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.err != nil {
		return nil, s.db.err
	}
	org.ID = s.db.nextID("org")
	org.CreatedAt = time.Now()
	s.db.orgs[org.ID] = *org
	m := &models.OrganizationMember{UserID: org.OwnerID, OrganizationID: org.ID, Role: auth.RoleOrganizationAdmin}
	if err := s.db.addOrgMember(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s memOrgs) Update(_ context.Context, org *models.Organization) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.orgs[org.ID]; !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	org.UpdatedAt = &now
	s.db.orgs[org.ID] = *org
	s.db.writes++
	return nil
}

func (s memOrgs) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.orgs[id]; !ok {
		return repositories.ErrNotFound
	}
	doomed := map[string]bool{}
	for sid, site := range s.db.sites {
		if site.OrganizationID == id {
			doomed[sid] = true
			delete(s.db.sites, sid)
		}
	}
	kept := s.db.siteMembers[:0]
	for _, m := range s.db.siteMembers {
		if !doomed[m.WebsiteID] {
			kept = append(kept, m)
		}
	}
	s.db.siteMembers = kept

	keptOrg := s.db.orgMembers[:0]
	for _, m := range s.db.orgMembers {
		if m.OrganizationID != id {
			keptOrg = append(keptOrg, m)
		}
	}
	s.db.orgMembers = keptOrg
	delete(s.db.orgs, id)
	s.db.writes++
	return nil
}

func (s memOrgs) AddMember(_ context.Context, m *models.OrganizationMember) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.beforeMemberInsert != nil {
		s.db.beforeMemberInsert(s.db)
	}
	return s.db.addOrgMember(m)
}

func (s memOrgs) ListMembers(_ context.Context, orgID string) ([]models.OrganizationMemberWithUser, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.OrganizationMemberWithUser
	for _, m := range s.db.orgMembers {
		if m.OrganizationID == orgID {
			out = append(out, models.OrganizationMemberWithUser{OrganizationMember: m, UserEmail: s.db.users[m.UserID].Email})
		}
	}
	return out, nil
}

func (s memOrgs) GetMemberRole(_ context.Context, userID, orgID string) (auth.Role, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.err != nil {
		return "", false, s.db.err
	}
	r, ok := s.db.orgRole(userID, orgID)
	return r, ok, nil
}

func (s memOrgs) ListForUser(_ context.Context, userID string) ([]models.Organization, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Organization
	for _, m := range s.db.orgMembers {
		if m.UserID == userID {
			out = append(out, s.db.orgs[m.OrganizationID])
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Websites
// ---------------------------------------------------------------------------

type memSites struct{ db *memDB }

func (s memSites) GetByID(_ context.Context, id string) (*models.Website, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.err != nil {
		return nil, s.db.err
	}
	w, ok := s.db.sites[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s memSites) Create(_ context.Context, site *models.Website, creator *models.WebsiteMember) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	site.ID = s.db.nextID("site")
	site.CreatedAt = time.Now()
	s.db.sites[site.ID] = *site
	s.db.writes++
	if creator == nil {
		return nil
	}
	creator.WebsiteID = site.ID
	return s.db.addSiteMember(creator)
}

func (s memSites) Update(_ context.Context, site *models.Website) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.sites[site.ID]; !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	site.UpdatedAt = &now
	s.db.sites[site.ID] = *site
	s.db.writes++
	return nil
}

func (s memSites) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.sites[id]; !ok {
		return repositories.ErrNotFound
	}
	kept := s.db.siteMembers[:0]
	for _, m := range s.db.siteMembers {
		if m.WebsiteID != id {
			kept = append(kept, m)
		}
	}
	s.db.siteMembers = kept
	delete(s.db.sites, id)
	s.db.writes++
	return nil
}

func (s memSites) ListByOrganization(_ context.Context, orgID string) ([]models.Website, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Website
	for _, w := range s.db.sites {
		if w.OrganizationID == orgID {
			out = append(out, w)
		}
	}
	return sortedSites(out), nil
}

func (s memSites) AddMember(_ context.Context, m *models.WebsiteMember) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.beforeMemberInsert != nil {
		s.db.beforeMemberInsert(s.db)
	}
	return s.db.addSiteMember(m)
}

func (s memSites) ListMembers(_ context.Context, siteID string) ([]models.WebsiteMemberWithUser, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.WebsiteMemberWithUser
	for _, m := range s.db.siteMembers {
		if m.WebsiteID == siteID {
			out = append(out, models.WebsiteMemberWithUser{WebsiteMember: m, UserEmail: s.db.users[m.UserID].Email})
		}
	}
	return out, nil
}

func (s memSites) GetMemberRole(_ context.Context, userID, siteID string) (auth.Role, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.err != nil {
		return "", false, s.db.err
	}
	r, ok := s.db.siteRole(userID, siteID)
	return r, ok, nil
}

func (s memSites) ListInUserOrganizations(_ context.Context, userID string) ([]models.Website, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Website
	for _, w := range s.db.sites {
		if _, ok := s.db.orgRole(userID, w.OrganizationID); ok {
			out = append(out, w)
		}
	}
	return sortedSites(out), nil
}

func (s memSites) ListWithDirectMembership(_ context.Context, userID string) ([]models.Website, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Website
	for _, m := range s.db.siteMembers {
		if m.UserID == userID {
			out = append(out, s.db.sites[m.WebsiteID])
		}
	}
	return sortedSites(out), nil
}

// ---------------------------------------------------------------------------
// Notifier
// ---------------------------------------------------------------------------

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Invitation
}

func (n *recordingNotifier) NotifyInvitation(_ context.Context, inv notify.Invitation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, inv)
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

const testSecret = "services-test-secret-at-least-32-chars!!"

type testEnv struct {
	db       *memDB
	eval     *permissions.Evaluator
	accounts *AccountService
	orgs     *OrganizationService
	sites    *WebsiteService
	notifier *recordingNotifier
	tokens   *auth.TokenIssuer
}

func newTestEnv() *testEnv {
	db := newMemDB()
	users, orgs, sites := memUsers{db}, memOrgs{db}, memSites{db}
	eval := permissions.NewEvaluator(orgs, sites)
	tokens, err := auth.NewTokenIssuer(testSecret, time.Minute, false)
	if err != nil {
		panic(err)
	}
	n := &recordingNotifier{}
	return &testEnv{
		db:       db,
		eval:     eval,
		accounts: NewAccountService(users, auth.NewHasher(4), tokens),
		orgs:     NewOrganizationService(orgs, users, eval, n),
		sites:    NewWebsiteService(sites, orgs, users, eval, n),
		notifier: n,
		tokens:   tokens,
	}
}

// seedUser inserts a user without going through registration.
func (e *testEnv) seedUser(email string) *models.User {
	e.db.mu.Lock()
	defer e.db.mu.Unlock()
	u := models.User{ID: e.db.nextID("user"), Email: email, IsActive: true, CreatedAt: time.Now()}
	e.db.users[u.ID] = u
	return &u
}

// register runs the real registration path and returns the user and the
// personal organization created with it.
func (e *testEnv) register(email string) (*models.User, *models.Organization) {
	u, err := e.accounts.Register(context.Background(), RegisterInput{Email: email, Password: "password123"})
	if err != nil {
		panic(err)
	}
	orgs, err := e.eval.OrganizationsForUser(context.Background(), u.ID)
	if err != nil || len(orgs) != 1 {
		panic(fmt.Sprintf("expected one personal organization, got %d (%v)", len(orgs), err))
	}
	return u, &orgs[0]
}
