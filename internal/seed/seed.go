// Package seed holds the built-in reference data (departments, users) and the
// objectives a fresh dashboard starts with.
package seed

import (
	_ "embed"
	"fmt"

	"okrdash/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type document struct {
	Departments []departmentDoc            `yaml:"departments"`
	Users       []userDoc                  `yaml:"users"`
	Objectives  map[string][]objectiveDoc `yaml:"objectives"`
	Company     []companyObjectiveDoc      `yaml:"company"`
}

type departmentDoc struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type userDoc struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Department string `yaml:"department"`
}

type objectiveDoc struct {
	ID         string         `yaml:"id"`
	Title      string         `yaml:"title"`
	Owner      string         `yaml:"owner"`
	KeyResults []keyResultDoc `yaml:"key_results"`
}

type keyResultDoc struct {
	ID         string  `yaml:"id"`
	Title      string  `yaml:"title"`
	Metric     string  `yaml:"metric"`
	Start      float64 `yaml:"start"`
	Target     float64 `yaml:"target"`
	Current    float64 `yaml:"current"`
	Owner      string  `yaml:"owner"`
	Status     string  `yaml:"status"`
	Confidence string  `yaml:"confidence"`
}

type companyObjectiveDoc struct {
	ID         string `yaml:"id"`
	Title      string `yaml:"title"`
	KeyResults []struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
	} `yaml:"key_results"`
}

// Data is a parsed seed. Objectives carry no cycle dates or derived progress;
// the state store stamps those on when it adopts them.
type Data struct {
	directory  *Directory
	objectives map[string][]domain.Objective
	company    []domain.CompanyObjective
}

func Default() (*Data, error) {
	return Parse(defaultSeed)
}

func Parse(raw []byte) (*Data, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	departments := make([]domain.Department, 0, len(doc.Departments))
	for _, d := range doc.Departments {
		departments = append(departments, domain.Department{ID: d.ID, Name: d.Name, Color: d.Color})
	}
	users := make([]domain.User, 0, len(doc.Users))
	for _, u := range doc.Users {
		users = append(users, domain.User{ID: u.ID, Name: u.Name, Role: u.Role, DepartmentID: u.Department})
	}
	directory := NewDirectory(departments, users)

	objectives := make(map[string][]domain.Objective, len(doc.Objectives))
	for deptID, docs := range doc.Objectives {
		if _, ok := directory.DepartmentByID(deptID); !ok {
			return nil, fmt.Errorf("parse seed: unknown department %q", deptID)
		}
		list := make([]domain.Objective, 0, len(docs))
		for _, o := range docs {
			objective := domain.Objective{
				ID:           o.ID,
				Title:        o.Title,
				DepartmentID: deptID,
				OwnerID:      o.Owner,
				KeyResults:   make([]domain.KeyResult, 0, len(o.KeyResults)),
			}
			for _, k := range o.KeyResults {
				metric := domain.MetricKind(k.Metric)
				if !metric.Valid() {
					return nil, fmt.Errorf("parse seed: key result %s: unknown metric %q", k.ID, k.Metric)
				}
				objective.KeyResults = append(objective.KeyResults, domain.KeyResult{
					ID:           k.ID,
					Title:        k.Title,
					ObjectiveID:  o.ID,
					Metric:       metric,
					StartValue:   k.Start,
					TargetValue:  k.Target,
					CurrentValue: k.Current,
					OwnerID:      k.Owner,
					Status:       domain.Status(k.Status),
					Confidence:   domain.Confidence(k.Confidence),
				})
			}
			list = append(list, objective)
		}
		objectives[deptID] = list
	}

	company := make([]domain.CompanyObjective, 0, len(doc.Company))
	for _, c := range doc.Company {
		objective := domain.CompanyObjective{ID: c.ID, Title: c.Title, KeyResults: make([]domain.CompanyKeyResult, 0, len(c.KeyResults))}
		for _, k := range c.KeyResults {
			objective.KeyResults = append(objective.KeyResults, domain.CompanyKeyResult{ID: k.ID, Title: k.Title})
		}
		company = append(company, objective)
	}

	return &Data{directory: directory, objectives: objectives, company: company}, nil
}

func (d *Data) Directory() *Directory {
	return d.directory
}

// Objectives returns a fresh copy on every call.
func (d *Data) Objectives() map[string][]domain.Objective {
	out := make(map[string][]domain.Objective, len(d.objectives))
	for deptID, list := range d.objectives {
		copied := make([]domain.Objective, len(list))
		for i, objective := range list {
			objective.KeyResults = append([]domain.KeyResult(nil), objective.KeyResults...)
			copied[i] = objective
		}
		out[deptID] = copied
	}
	return out
}

func (d *Data) CompanyObjectives() []domain.CompanyObjective {
	out := make([]domain.CompanyObjective, len(d.company))
	for i, objective := range d.company {
		objective.KeyResults = append([]domain.CompanyKeyResult(nil), objective.KeyResults...)
		out[i] = objective
	}
	return out
}
