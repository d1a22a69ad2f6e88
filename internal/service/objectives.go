package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"okrdash/internal/domain"
	"okrdash/internal/okr"

	"github.com/google/uuid"
)

type KeyResultDraft struct {
	Title        string
	Metric       domain.MetricKind
	StartValue   float64
	TargetValue  float64
	CurrentValue float64
	OwnerID      string
	Confidence   domain.Confidence
}

type ObjectiveDraft struct {
	Title      string
	OwnerID    string
	KeyResults []KeyResultDraft
}

// KeyResultPatch is a partial update; nil fields are left alone.
type KeyResultPatch struct {
	Title        *string
	Metric       *domain.MetricKind
	StartValue   *float64
	TargetValue  *float64
	CurrentValue *float64
	OwnerID      *string
	Status       *domain.Status
	Confidence   *domain.Confidence
}

type ObjectivePatch struct {
	Title   *string
	OwnerID *string
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (d KeyResultDraft) build(objectiveID string) (domain.KeyResult, error) {
	if !finite(d.StartValue, d.TargetValue, d.CurrentValue) {
		return domain.KeyResult{}, fmt.Errorf("%w: key result values must be finite", ErrInvalidValue)
	}
	metric := d.Metric
	if metric == "" {
		metric = domain.MetricPercentage
	}
	if !metric.Valid() {
		return domain.KeyResult{}, fmt.Errorf("%w: metric %q", ErrInvalidValue, d.Metric)
	}
	confidence := d.Confidence
	if confidence == "" {
		confidence = domain.ConfidenceMedium
	}
	if !confidence.Valid() {
		return domain.KeyResult{}, fmt.Errorf("%w: confidence %q", ErrInvalidValue, d.Confidence)
	}
	kr := domain.KeyResult{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(d.Title),
		ObjectiveID:  objectiveID,
		Metric:       metric,
		StartValue:   d.StartValue,
		TargetValue:  d.TargetValue,
		CurrentValue: d.CurrentValue,
		OwnerID:      d.OwnerID,
		Confidence:   confidence,
	}
	kr.Progress = okr.KeyResultProgress(kr.Metric, kr.StartValue, kr.TargetValue, kr.CurrentValue)
	kr.Status = okr.StatusFromProgress(kr.Progress)
	return kr, nil
}

func (p KeyResultPatch) validate() error {
	for _, v := range []*float64{p.StartValue, p.TargetValue, p.CurrentValue} {
		if v != nil && !finite(*v) {
			return fmt.Errorf("%w: key result values must be finite", ErrInvalidValue)
		}
	}
	if p.Metric != nil && !p.Metric.Valid() {
		return fmt.Errorf("%w: metric %q", ErrInvalidValue, *p.Metric)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidValue, *p.Status)
	}
	if p.Confidence != nil && !p.Confidence.Valid() {
		return fmt.Errorf("%w: confidence %q", ErrInvalidValue, *p.Confidence)
	}
	return nil
}

// normalizeObjective re-derives every computed field and stamps the cycle window.
func (s *Service) normalizeObjective(o domain.Objective, departmentID string) domain.Objective {
	o.DepartmentID = departmentID
	o.Cycle = s.window.Cycle
	o.StartDate = s.window.StartDate
	o.EndDate = s.window.EndDate
	krs := make([]domain.KeyResult, len(o.KeyResults))
	for i, kr := range o.KeyResults {
		kr.ObjectiveID = o.ID
		if !kr.Metric.Valid() {
			kr.Metric = domain.MetricPercentage
		}
		if !finite(kr.StartValue, kr.TargetValue, kr.CurrentValue) {
			kr.StartValue, kr.TargetValue, kr.CurrentValue = 0, 0, 0
		}
		kr.Progress = okr.KeyResultProgress(kr.Metric, kr.StartValue, kr.TargetValue, kr.CurrentValue)
		if !kr.Status.Valid() {
			kr.Status = okr.StatusFromProgress(kr.Progress)
		}
		if !kr.Confidence.Valid() {
			kr.Confidence = domain.ConfidenceMedium
		}
		krs[i] = kr
	}
	o.KeyResults = krs
	o.Progress = okr.ObjectiveProgress(o.KeyResults)
	return o
}

func (s *Service) normalizeAllLocked(in map[string][]domain.Objective) map[string][]domain.Objective {
	out := make(map[string][]domain.Objective, len(in))
	for dept, list := range in {
		normalized := make([]domain.Objective, len(list))
		for i, objective := range list {
			normalized[i] = s.normalizeObjective(objective, dept)
		}
		out[dept] = normalized
	}
	return out
}

func (s *Service) seedObjectivesLocked() map[string][]domain.Objective {
	return s.normalizeAllLocked(s.seed.Objectives())
}

// UpdateObjectives replaces one department's objectives wholesale. Derived fields
// of the incoming objectives are recomputed and the department's stats refreshed.
func (s *Service) UpdateObjectives(ctx context.Context, departmentID string, objectives []domain.Objective) error {
	s.mu.Lock()
	if !s.knownDepartmentLocked(departmentID) {
		s.mu.Unlock()
		return ErrDepartmentNotFound
	}
	list := make([]domain.Objective, len(objectives))
	for i, objective := range objectives {
		if objective.ID == "" {
			objective.ID = uuid.NewString()
		}
		list[i] = s.normalizeObjective(copyObjective(objective), departmentID)
	}
	s.objectives[departmentID] = list
	s.recalculateLocked(departmentID)
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventObjectivesChanged, DepartmentID: departmentID},
		Event{Kind: EventStatsChanged, DepartmentID: departmentID})
	return nil
}

// UpdateKeyResult applies patch to one key result. Progress is recomputed when a
// value or the metric changed, and status follows progress unless patch sets it.
func (s *Service) UpdateKeyResult(ctx context.Context, objectiveID, keyResultID string, patch KeyResultPatch) (domain.KeyResult, error) {
	if err := patch.validate(); err != nil {
		return domain.KeyResult{}, err
	}

	s.mu.Lock()
	dept, idx, ok := s.locateLocked(objectiveID)
	if !ok {
		s.mu.Unlock()
		return domain.KeyResult{}, ErrObjectiveNotFound
	}
	objective := copyObjective(s.objectives[dept][idx])
	krIdx := -1
	for i, kr := range objective.KeyResults {
		if kr.ID == keyResultID {
			krIdx = i
			break
		}
	}
	if krIdx < 0 {
		s.mu.Unlock()
		return domain.KeyResult{}, ErrKeyResultNotFound
	}

	kr := objective.KeyResults[krIdx]
	recompute := false
	if patch.Title != nil {
		kr.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.OwnerID != nil {
		kr.OwnerID = *patch.OwnerID
	}
	if patch.Confidence != nil {
		kr.Confidence = *patch.Confidence
	}
	if patch.Metric != nil && *patch.Metric != kr.Metric {
		kr.Metric = *patch.Metric
		recompute = true
	}
	if patch.StartValue != nil && *patch.StartValue != kr.StartValue {
		kr.StartValue = *patch.StartValue
		recompute = true
	}
	if patch.TargetValue != nil && *patch.TargetValue != kr.TargetValue {
		kr.TargetValue = *patch.TargetValue
		recompute = true
	}
	if patch.CurrentValue != nil && *patch.CurrentValue != kr.CurrentValue {
		kr.CurrentValue = *patch.CurrentValue
		recompute = true
	}
	if recompute {
		progress := okr.KeyResultProgress(kr.Metric, kr.StartValue, kr.TargetValue, kr.CurrentValue)
		if progress != kr.Progress && patch.Status == nil {
			kr.Status = okr.StatusFromProgress(progress)
		}
		kr.Progress = progress
	}
	if patch.Status != nil {
		kr.Status = *patch.Status
	}

	objective.KeyResults[krIdx] = kr
	objective.Progress = okr.ObjectiveProgress(objective.KeyResults)
	s.objectives[dept][idx] = objective
	s.recalculateLocked(dept)
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventObjectivesChanged, DepartmentID: dept, ObjectiveID: objectiveID, KeyResultID: keyResultID},
		Event{Kind: EventStatsChanged, DepartmentID: dept})
	return kr, nil
}

func (s *Service) AddObjective(ctx context.Context, departmentID string, draft ObjectiveDraft) (domain.Objective, error) {
	objective := domain.Objective{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(draft.Title),
		OwnerID:    draft.OwnerID,
		KeyResults: make([]domain.KeyResult, 0, len(draft.KeyResults)),
	}
	for _, krDraft := range draft.KeyResults {
		kr, err := krDraft.build(objective.ID)
		if err != nil {
			return domain.Objective{}, err
		}
		objective.KeyResults = append(objective.KeyResults, kr)
	}

	s.mu.Lock()
	if !s.knownDepartmentLocked(departmentID) {
		s.mu.Unlock()
		return domain.Objective{}, ErrDepartmentNotFound
	}
	objective = s.normalizeObjective(objective, departmentID)
	s.objectives[departmentID] = append(s.objectives[departmentID], objective)
	s.recalculateLocked(departmentID)
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventObjectivesChanged, DepartmentID: departmentID, ObjectiveID: objective.ID},
		Event{Kind: EventStatsChanged, DepartmentID: departmentID})
	return copyObjective(objective), nil
}

func (s *Service) UpdateObjective(ctx context.Context, id string, patch ObjectivePatch) (domain.Objective, error) {
	s.mu.Lock()
	dept, idx, ok := s.locateLocked(id)
	if !ok {
		s.mu.Unlock()
		return domain.Objective{}, ErrObjectiveNotFound
	}
	objective := s.objectives[dept][idx]
	if patch.Title != nil {
		objective.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.OwnerID != nil {
		objective.OwnerID = *patch.OwnerID
	}
	s.objectives[dept][idx] = objective
	out := copyObjective(objective)
	s.commit(ctx, s.snapshotLocked(), Event{Kind: EventObjectivesChanged, DepartmentID: dept, ObjectiveID: id})
	return out, nil
}

func (s *Service) DeleteObjective(ctx context.Context, id string) error {
	s.mu.Lock()
	dept, idx, ok := s.locateLocked(id)
	if !ok {
		s.mu.Unlock()
		return ErrObjectiveNotFound
	}
	list := s.objectives[dept]
	s.objectives[dept] = append(list[:idx:idx], list[idx+1:]...)
	s.recalculateLocked(dept)
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventObjectiveRemoved, DepartmentID: dept, ObjectiveID: id},
		Event{Kind: EventStatsChanged, DepartmentID: dept})
	return nil
}

func (s *Service) AddKeyResult(ctx context.Context, objectiveID string, draft KeyResultDraft) (domain.KeyResult, error) {
	kr, err := draft.build(objectiveID)
	if err != nil {
		return domain.KeyResult{}, err
	}

	s.mu.Lock()
	dept, idx, ok := s.locateLocked(objectiveID)
	if !ok {
		s.mu.Unlock()
		return domain.KeyResult{}, ErrObjectiveNotFound
	}
	objective := copyObjective(s.objectives[dept][idx])
	objective.KeyResults = append(objective.KeyResults, kr)
	objective.Progress = okr.ObjectiveProgress(objective.KeyResults)
	s.objectives[dept][idx] = objective
	s.recalculateLocked(dept)
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventObjectivesChanged, DepartmentID: dept, ObjectiveID: objectiveID, KeyResultID: kr.ID},
		Event{Kind: EventStatsChanged, DepartmentID: dept})
	return kr, nil
}

// DeleteKeyResult refuses to remove an objective's last key result.
func (s *Service) DeleteKeyResult(ctx context.Context, objectiveID, keyResultID string) error {
	s.mu.Lock()
	dept, idx, ok := s.locateLocked(objectiveID)
	if !ok {
		s.mu.Unlock()
		return ErrObjectiveNotFound
	}
	objective := copyObjective(s.objectives[dept][idx])
	krIdx := -1
	for i, kr := range objective.KeyResults {
		if kr.ID == keyResultID {
			krIdx = i
			break
		}
	}
	if krIdx < 0 {
		s.mu.Unlock()
		return ErrKeyResultNotFound
	}
	if len(objective.KeyResults) == 1 {
		s.mu.Unlock()
		return ErrLastKeyResult
	}
	objective.KeyResults = append(objective.KeyResults[:krIdx], objective.KeyResults[krIdx+1:]...)
	objective.Progress = okr.ObjectiveProgress(objective.KeyResults)
	s.objectives[dept][idx] = objective
	s.recalculateLocked(dept)
	s.commit(ctx, s.snapshotLocked(),
		Event{Kind: EventKeyResultRemoved, DepartmentID: dept, ObjectiveID: objectiveID, KeyResultID: keyResultID},
		Event{Kind: EventStatsChanged, DepartmentID: dept})
	return nil
}
