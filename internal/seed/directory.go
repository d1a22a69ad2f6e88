package seed

import "okrdash/internal/domain"

// Directory is the read-only department and user lookup.
type Directory struct {
	departments     []domain.Department
	users           []domain.User
	departmentsByID map[string]domain.Department
	usersByID       map[string]domain.User
}

func NewDirectory(departments []domain.Department, users []domain.User) *Directory {
	d := &Directory{
		departments:     append([]domain.Department(nil), departments...),
		users:           append([]domain.User(nil), users...),
		departmentsByID: make(map[string]domain.Department, len(departments)),
		usersByID:       make(map[string]domain.User, len(users)),
	}
	for _, department := range departments {
		d.departmentsByID[department.ID] = department
	}
	for _, user := range users {
		d.usersByID[user.ID] = user
	}
	return d
}

func (d *Directory) DepartmentByID(id string) (domain.Department, bool) {
	department, ok := d.departmentsByID[id]
	return department, ok
}

func (d *Directory) UserByID(id string) (domain.User, bool) {
	user, ok := d.usersByID[id]
	return user, ok
}

func (d *Directory) Departments() []domain.Department {
	return append([]domain.Department(nil), d.departments...)
}

func (d *Directory) Users() []domain.User {
	return append([]domain.User(nil), d.users...)
}
