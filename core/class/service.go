package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("class not found")
	ErrInvalidTeacher = errors.New("Invalid or non-existent teacher ID")
)

type (
	Repository interface {
		// CreateClass returns a *core.DuplicateKeyError if the name is taken.
		CreateClass(ctx context.Context, c Class) (Class, error)
		// GetClass returns a *core.InvalidIDError for malformed IDs and ErrNotFound for unknown ones.
		GetClass(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, page core.Page) ([]Class, int, error)
		// UpdateClass saves the name and teacher of c.
		UpdateClass(ctx context.Context, c Class) (Class, error)
		DeleteClass(ctx context.Context, id string) error
		ClassExists(ctx context.Context, id string) (bool, error)
		IncStudentCount(ctx context.Context, id string, delta int) error
	}

	// TeacherDirectory resolves class teachers.
	TeacherDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// TeacherSummary is the teacher of a class, as shown with it.
	TeacherSummary struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Subject string `json:"subject,omitempty"`
		Photo   string `json:"photo,omitempty"`
	}

	// Detail is a Class with its teacher resolved. Teacher is nil if the teacher left.
	Detail struct {
		Class
		Teacher *TeacherSummary `json:"teacherId"`
	}

	Service struct {
		repo     Repository
		teachers TeacherDirectory
	}
)

func NewService(repo Repository, teachers TeacherDirectory) *Service {
	return &Service{repo: repo, teachers: teachers}
}

func invalidTeacherError() error {
	return core.NewValidationError(ErrInvalidTeacher, core.FieldError{Field: "teacherId", Error: ErrInvalidTeacher.Error()})
}

// getTeacher returns the teacher with the given ID, or a validation error if there is none.
func (svc *Service) getTeacher(ctx context.Context, id string) (user.User, error) {
	usr, err := svc.teachers.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound || core.IsNotFound(err) {
			return user.User{}, invalidTeacherError()
		}
		return user.User{}, errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return user.User{}, invalidTeacherError()
	}
	return usr, nil
}

func summarize(usr user.User, withPhoto bool) *TeacherSummary {
	sum := &TeacherSummary{ID: usr.ID, Name: usr.Name, Subject: usr.Subject()}
	if withPhoto {
		sum.Photo = usr.Photo
	}
	return sum
}

// populate resolves the teacher of c. A teacher that no longer exists is left out.
func (svc *Service) populate(ctx context.Context, c Class, withPhoto bool) (Detail, error) {
	d := Detail{Class: c}
	if c.TeacherID == "" {
		return d, nil
	}
	usr, err := svc.teachers.GetByID(ctx, c.TeacherID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound || core.IsNotFound(err) {
			return d, nil
		}
		return Detail{}, errors.Wrap(err, "populating teacher")
	}
	d.Teacher = summarize(usr, withPhoto)
	return d, nil
}

func (svc *Service) get(ctx context.Context, id string) (Class, error) {
	c, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Class{}, core.NewNotFoundError("Class", id)
		}
		return Class{}, err
	}
	return c, nil
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Detail, error) {
	teacher, err := svc.getTeacher(ctx, nc.TeacherID)
	if err != nil {
		return Detail{}, err
	}
	c, err := svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		TeacherID: teacher.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Detail{}, errors.Wrap(err, "creating class")
	}
	return Detail{Class: c, Teacher: summarize(teacher, false)}, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Detail, error) {
	c, err := svc.get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return svc.populate(ctx, c, true)
}

func (svc *Service) Query(ctx context.Context, page core.Page) ([]Detail, int, error) {
	classes, total, err := svc.repo.QueryClasses(ctx, page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying classes")
	}
	details := make([]Detail, 0, len(classes))
	for _, c := range classes {
		d, err := svc.populate(ctx, c, false)
		if err != nil {
			return nil, 0, err
		}
		details = append(details, d)
	}
	return details, total, nil
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateClass) (Detail, error) {
	c, err := svc.get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.TeacherID != "" {
		teacher, err := svc.getTeacher(ctx, uc.TeacherID)
		if err != nil {
			return Detail{}, err
		}
		c.TeacherID = teacher.ID
	}
	return svc.save(ctx, c)
}

// AssignTeacher makes the given teacher the teacher of the class.
func (svc *Service) AssignTeacher(ctx context.Context, id string, at AssignTeacher) (Detail, error) {
	return svc.Update(ctx, id, UpdateClass{TeacherID: at.TeacherID})
}

func (svc *Service) save(ctx context.Context, c Class) (Detail, error) {
	saved, err := svc.repo.UpdateClass(ctx, c)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Detail{}, core.NewNotFoundError("Class", c.ID)
		}
		return Detail{}, errors.Wrap(err, "updating class")
	}
	return svc.populate(ctx, saved, true)
}

// Delete removes the class. Its students keep their (now dangling) class reference.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteClass(ctx, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewNotFoundError("Class", id)
		}
		return errors.Wrap(err, "deleting class")
	}
	return nil
}

// Ref is the short form of a class, as shown with its students.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GetRef returns the short form of the class, or nil if there is no such class.
func (svc *Service) GetRef(ctx context.Context, id string) (*Ref, error) {
	if id == "" {
		return nil, nil
	}
	c, err := svc.repo.GetClass(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound || core.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "finding class")
	}
	return &Ref{ID: c.ID, Name: c.Name}, nil
}
