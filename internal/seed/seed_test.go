package seed

import (
	"testing"

	"okrdash/internal/domain"
)

func TestDefaultSeedIsConsistent(t *testing.T) {
	data, err := Default()
	if err != nil {
		t.Fatalf("default seed: %v", err)
	}
	dir := data.Directory()
	if len(dir.Departments()) != 5 {
		t.Fatalf("expected 5 departments got %d", len(dir.Departments()))
	}
	for deptID, objectives := range data.Objectives() {
		if _, ok := dir.DepartmentByID(deptID); !ok {
			t.Fatalf("objectives for unknown department %s", deptID)
		}
		for _, objective := range objectives {
			if len(objective.KeyResults) == 0 {
				t.Fatalf("objective %s has no key results", objective.ID)
			}
			if _, ok := dir.UserByID(objective.OwnerID); !ok {
				t.Fatalf("objective %s has unknown owner %s", objective.ID, objective.OwnerID)
			}
			for _, kr := range objective.KeyResults {
				if kr.ObjectiveID != objective.ID {
					t.Fatalf("key result %s points at %s", kr.ID, kr.ObjectiveID)
				}
			}
		}
	}
	if len(data.CompanyObjectives()) == 0 {
		t.Fatalf("expected company objectives")
	}
}

func TestObjectivesReturnsCopies(t *testing.T) {
	data, err := Default()
	if err != nil {
		t.Fatalf("default seed: %v", err)
	}
	first := data.Objectives()
	first["engineering"][0].KeyResults[0].Title = "changed"
	second := data.Objectives()
	if second["engineering"][0].KeyResults[0].Title == "changed" {
		t.Fatalf("seed data was mutated through a returned copy")
	}
}

func TestParseRejectsUnknownMetric(t *testing.T) {
	raw := []byte(`
departments: [{id: eng, name: Eng, color: "#000"}]
objectives:
  eng:
    - id: o1
      title: T
      key_results: [{id: k1, title: K, metric: Stars}]
`)
	if _, err := Parse(raw); err == nil {
		t.Fatalf("expected error for unknown metric")
	}
}

func TestDirectoryLookup(t *testing.T) {
	dir := NewDirectory(
		[]domain.Department{{ID: "eng", Name: "Engineering"}},
		[]domain.User{{ID: "u1", Name: "Ada", DepartmentID: "eng"}},
	)
	if d, ok := dir.DepartmentByID("eng"); !ok || d.Name != "Engineering" {
		t.Fatalf("expected engineering got %+v", d)
	}
	if _, ok := dir.UserByID("missing"); ok {
		t.Fatalf("expected missing user")
	}
}
