package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/campus-maintenance/internal/config"
	"github.com/spec-kit/campus-maintenance/internal/domain"
	"github.com/spec-kit/campus-maintenance/internal/repository"
	"github.com/spec-kit/campus-maintenance/pkg/apperrors"
)

// DuplicateService scores a candidate ticket against open tickets in the
// same building and category. The result is advisory: it never blocks
// creation.
type DuplicateService struct {
	tickets repository.TicketRepository
	cfg     config.DuplicateConfig
}

// NewDuplicateService constructs the service.
func NewDuplicateService(tickets repository.TicketRepository, cfg config.DuplicateConfig) *DuplicateService {
	return &DuplicateService{tickets: tickets, cfg: cfg}
}

// DuplicateCandidate is the yet-to-be-created ticket being checked.
type DuplicateCandidate struct {
	Title    string
	Category domain.TicketCategory
	Building string
}

// SimilarTicket is one reported match.
type SimilarTicket struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Status   domain.TicketStatus   `json:"status"`
	Building string                `json:"building"`
	Category domain.TicketCategory `json:"category"`
	Score    float64               `json:"score"`
}

// DuplicateReport summarizes the check.
type DuplicateReport struct {
	HasSimilar bool            `json:"has_similar"`
	Similar    []SimilarTicket `json:"similar"`
	Message    string          `json:"message"`
}

// Check gathers open tickets sharing the candidate's category and
// building and reports the highest-scoring titles above the configured
// threshold, capped to the configured maximum.
func (s *DuplicateService) Check(ctx context.Context, candidate DuplicateCandidate) (*DuplicateReport, error) {
	existing, err := s.tickets.ListOpenByCategoryAndBuilding(ctx, candidate.Category, strings.TrimSpace(candidate.Building))
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	inputTitle := strings.ToLower(strings.TrimSpace(candidate.Title))
	matches := make([]SimilarTicket, 0)
	for _, t := range existing {
		score := s.similarity(inputTitle, strings.ToLower(strings.TrimSpace(t.Title)))
		if score <= s.cfg.Threshold {
			continue
		}
		matches = append(matches, SimilarTicket{
			ID:       t.ID,
			Title:    t.Title,
			Status:   t.Status,
			Building: t.Building,
			Category: t.Category,
			Score:    score,
		})
	}

	// Highest score first; equal scores fall back to id so the order is
	// deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > s.cfg.MaxMatches {
		matches = matches[:s.cfg.MaxMatches]
	}

	if len(matches) == 0 {
		return &DuplicateReport{HasSimilar: false, Similar: []SimilarTicket{}, Message: "No similar reports found."}, nil
	}
	return &DuplicateReport{
		HasSimilar: true,
		Similar:    matches,
		Message: fmt.Sprintf("Found %d similar report(s) in %s. You may still submit.",
			len(matches), candidate.Building),
	}, nil
}

// similarity scores two normalized titles: identical strings score 1.0,
// containment scores the configured bonus, everything else degrades with
// edit distance relative to the longer string.
func (s *DuplicateService) similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return s.cfg.ContainmentScore
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes the edit distance between two rune slices using a
// rolling single-row table. Runes rather than bytes so multi-byte titles
// are compared per character.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
