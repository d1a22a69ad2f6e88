package service

import (
	"context"
	"fmt"
	"strings"

	"okrdash/internal/domain"

	"github.com/google/uuid"
)

// Company objectives have no metrics and are persisted under their own key.

func (s *Service) CompanyObjectives() []domain.CompanyObjective {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCompany(s.company)
}

func (s *Service) ReplaceCompanyObjectives(ctx context.Context, objectives []domain.CompanyObjective) {
	list := copyCompany(objectives)
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = uuid.NewString()
		}
		for j := range list[i].KeyResults {
			if list[i].KeyResults[j].ID == "" {
				list[i].KeyResults[j].ID = uuid.NewString()
			}
		}
	}
	s.mu.Lock()
	s.company = list
	s.commit(ctx, s.companyWritesLocked(), Event{Kind: EventCompanyChanged})
}

func (s *Service) AddCompanyObjective(ctx context.Context, title string) (domain.CompanyObjective, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.CompanyObjective{}, fmt.Errorf("%w: title is required", ErrInvalidValue)
	}
	objective := domain.CompanyObjective{ID: uuid.NewString(), Title: title, KeyResults: []domain.CompanyKeyResult{}}
	s.mu.Lock()
	s.company = append(s.company, objective)
	s.commit(ctx, s.companyWritesLocked(), Event{Kind: EventCompanyChanged, ObjectiveID: objective.ID})
	return objective, nil
}

func (s *Service) AddCompanyKeyResult(ctx context.Context, objectiveID, title string) (domain.CompanyKeyResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.CompanyKeyResult{}, fmt.Errorf("%w: title is required", ErrInvalidValue)
	}
	kr := domain.CompanyKeyResult{ID: uuid.NewString(), Title: title}
	s.mu.Lock()
	for i := range s.company {
		if s.company[i].ID != objectiveID {
			continue
		}
		objective := s.company[i]
		objective.KeyResults = append(append([]domain.CompanyKeyResult(nil), objective.KeyResults...), kr)
		s.company[i] = objective
		s.commit(ctx, s.companyWritesLocked(), Event{Kind: EventCompanyChanged, ObjectiveID: objectiveID, KeyResultID: kr.ID})
		return kr, nil
	}
	s.mu.Unlock()
	return domain.CompanyKeyResult{}, ErrObjectiveNotFound
}

func (s *Service) DeleteCompanyObjective(ctx context.Context, id string) error {
	s.mu.Lock()
	for i := range s.company {
		if s.company[i].ID != id {
			continue
		}
		s.company = append(s.company[:i:i], s.company[i+1:]...)
		s.commit(ctx, s.companyWritesLocked(), Event{Kind: EventCompanyChanged, ObjectiveID: id})
		return nil
	}
	s.mu.Unlock()
	return ErrObjectiveNotFound
}

func copyCompany(in []domain.CompanyObjective) []domain.CompanyObjective {
	out := make([]domain.CompanyObjective, len(in))
	for i, objective := range in {
		objective.KeyResults = append([]domain.CompanyKeyResult{}, objective.KeyResults...)
		out[i] = objective
	}
	return out
}
