package class

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
)

type Class struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TeacherID    string    `json:"-"`
	StudentCount int       `json:"studentCount"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name      string `json:"name" validate:"required"`
	TeacherID string `json:"teacherId" validate:"required,objectid"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name      string `json:"name"`
	TeacherID string `json:"teacherId" validate:"omitempty,objectid"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.TeacherID = core.CleanString(uc.TeacherID)
	return validate.Struct(uc)
}

type AssignTeacher struct {
	TeacherID string `json:"teacherId" validate:"required,objectid"`
}

func (at *AssignTeacher) Validate(validate *validator.Validate) error {
	at.TeacherID = core.CleanString(at.TeacherID)
	return validate.Struct(at)
}
