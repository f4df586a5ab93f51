package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/repository"
)

// baseTime anchors all fixture clocks so deadline math is reproducible.
var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type memTickets struct {
	mu        sync.Mutex
	byID      map[string]*domain.Ticket
	order     []string
	seq       int
	clock     func() time.Time
	updateErr map[string]error
}

func newMemTickets() *memTickets {
	return &memTickets{
		byID:      make(map[string]*domain.Ticket),
		clock:     fixedClock(baseTime),
		updateErr: make(map[string]error),
	}
}

func (m *memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if ticket.ID == "" {
		ticket.ID = fmt.Sprintf("ticket-%d", m.seq)
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = m.clock()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	m.byID[ticket.ID] = &clone
	m.order = append(m.order, ticket.ID)
	return nil
}

func (m *memTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[ticket.ID]; err != nil {
		return err
	}
	if _, ok := m.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = m.clock()
	clone := *ticket
	m.byID[ticket.ID] = &clone
	return nil
}

func (m *memTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (m *memTickets) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return m.GetByID(ctx, id)
}

func (m *memTickets) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	all, _ := m.ListAll(ctx)
	result := make([]domain.Ticket, 0, len(all))
	for _, t := range all {
		if filter.CreatorID != nil && t.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		if filter.Urgency != nil && t.Urgency != *filter.Urgency {
			continue
		}
		if filter.SearchTerm != nil {
			needle := strings.ToLower(*filter.SearchTerm)
			haystack := strings.ToLower(t.Title + " " + t.Description + " " + t.Building + " " + t.Location)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		result = append(result, t)
	}
	if filter.Offset > 0 && filter.Offset < len(result) {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *memTickets) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Ticket, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, *m.byID[id])
	}
	return result, nil
}

func (m *memTickets) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	all, _ := m.ListAll(ctx)
	result := make([]domain.Ticket, 0, len(all))
	for _, t := range all {
		if t.Status.IsOpen() {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *memTickets) ListOpenByCategoryAndBuilding(ctx context.Context, category domain.TicketCategory, building string) ([]domain.Ticket, error) {
	open, _ := m.ListOpen(ctx)
	result := make([]domain.Ticket, 0, len(open))
	for _, t := range open {
		if t.Category == category && strings.EqualFold(t.Building, building) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (m *memTickets) CountActiveByAssignee(ctx context.Context, assigneeID string) (int, error) {
	all, _ := m.ListAll(ctx)
	count := 0
	for _, t := range all {
		if t.AssigneeID != nil && *t.AssigneeID == assigneeID &&
			t.Status != domain.TicketStatusResolved && t.Status != domain.TicketStatusClosed {
			count++
		}
	}
	return count, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memLogs struct {
	mu   sync.Mutex
	logs []domain.TicketLog
	seq  int
}

func newMemLogs() *memLogs {
	return &memLogs{}
}

func (m *memLogs) Create(ctx context.Context, log *domain.TicketLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if log.ID == "" {
		log.ID = fmt.Sprintf("log-%d", m.seq)
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = baseTime.Add(time.Duration(m.seq) * time.Second)
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memLogs) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.TicketLog, 0)
	for _, l := range m.logs {
		if l.TicketID == ticketID {
			result = append(result, l)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type memRatings struct {
	mu      sync.Mutex
	ratings map[string]*domain.TicketRating
	seq     int
}

func newMemRatings() *memRatings {
	return &memRatings{ratings: make(map[string]*domain.TicketRating)}
}

func (m *memRatings) Create(ctx context.Context, rating *domain.TicketRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if rating.ID == "" {
		rating.ID = fmt.Sprintf("rating-%d", m.seq)
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = baseTime
	}
	clone := *rating
	m.ratings[rating.TicketID] = &clone
	return nil
}

func (m *memRatings) GetByTicket(ctx context.Context, ticketID string) (*domain.TicketRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rating, ok := m.ratings[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *rating
	return &clone, nil
}

func (m *memRatings) ExistsByTicket(ctx context.Context, ticketID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ratings[ticketID]
	return ok, nil
}

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*domain.User
	order []string
	seq   int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*domain.User)}
}

func (m *memUsers) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", m.seq)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = baseTime.Add(time.Duration(m.seq) * time.Minute)
	}
	clone := *user
	m.byID[user.ID] = &clone
	m.order = append(m.order, user.ID)
	return nil
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if m.byID[id].Email == email {
			clone := *m.byID[id]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.User, 0)
	for _, id := range m.order {
		if m.byID[id].Role == role {
			result = append(result, *m.byID[id])
		}
	}
	return result, nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []domain.Notification
	seq   int
}

func newMemNotifications() *memNotifications {
	return &memNotifications{}
}

func (m *memNotifications) Create(ctx context.Context, notification *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if notification.ID == "" {
		notification.ID = fmt.Sprintf("notification-%d", m.seq)
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = baseTime.Add(time.Duration(m.seq) * time.Second)
	}
	m.items = append(m.items, *notification)
	return nil
}

func (m *memNotifications) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.Notification, 0)
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			result = append(result, m.items[i])
		}
	}
	return result, nil
}

func (m *memNotifications) CountUnread(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memNotifications) MarkAllRead(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].UserID == userID {
			m.items[i].Read = true
		}
	}
	return nil
}

// memTx satisfies TxRunner without a database. A mutex stands in for the
// row locks the real transaction manager relies on.
type memTx struct {
	mu sync.Mutex
}

func (m *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}
