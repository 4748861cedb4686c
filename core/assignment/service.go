package assignment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/hesabu/core"
)

var (
	// errors
	ErrNotFound  = errors.New("assignment not found")
	ErrInvalidID = errors.New("invalid assignment id")

	errDraftNotShareable = errors.New("a draft assignment cannot be shared")

	nowFunc = time.Now // mockable
)

type Repository interface {
	// ReserveAssignment atomically picks the next "Assignment-<n>" id and stores `asg` under it.
	ReserveAssignment(ctx context.Context, asg Assignment) (Assignment, error)
	// PeekNextAssignmentID returns the id the next ReserveAssignment would pick, without reserving it.
	PeekNextAssignmentID(ctx context.Context) (string, error)
	// SaveAssignment writes the full document, replacing any previous one with the same id.
	SaveAssignment(ctx context.Context, asg Assignment) (Assignment, error)
	QueryAssignments(ctx context.Context, ordering []core.DBOrdering) ([]Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	DeleteAssignmentsByID(ctx context.Context, ids []string) (int, error)
}

type Service struct {
	repo    Repository
	mailSvc core.EmailService
}

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Query lists all the Assignments.
func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]ListItem, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}, {Field: "id", Ascending: true}}
	}
	asgs, err := svc.repo.QueryAssignments(ctx, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	items := make([]ListItem, 0, len(asgs))
	for _, a := range asgs {
		items = append(items, NewListItem(a))
	}
	return items, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Assignment, error) {
	id = core.CleanString(id)
	if id == "" {
		return Assignment{}, ErrNotFound
	}
	return svc.repo.GetAssignment(ctx, id)
}

// AddNew creates an empty draft under the next free id. The draft is then filled in by Save.
func (svc *Service) AddNew(ctx context.Context) (Assignment, error) {
	asg, err := svc.repo.ReserveAssignment(ctx, Assignment{
		CreatedAt: nowFunc().UTC(),
		Sequence:  []Question{},
	})
	if err != nil {
		return Assignment{}, errors.Wrap(err, "reserving assignment")
	}
	return asg, nil
}

// NextID returns the id the next AddNew would use.
func (svc *Service) NextID(ctx context.Context) (string, error) {
	return svc.repo.PeekNextAssignmentID(ctx)
}

// Save writes the whole Assignment `id`. `na` must have been validated.
func (svc *Service) Save(ctx context.Context, id string, na NewAssignment) (Assignment, error) {
	id = core.CleanString(id)
	if id == "" {
		return Assignment{}, core.NewValidationError(ErrInvalidID, core.FieldError{Field: "id", Error: ErrInvalidID.Error()})
	}
	if len(na.Questions) != na.NumQuestions {
		return Assignment{}, core.NewValidationError(nil, core.FieldError{Field: "questions", Error: questionsCountText})
	}

	asg, err := svc.repo.SaveAssignment(ctx, Assignment{
		ID:           id,
		CreatedAt:    nowFunc().UTC(),
		NumQuestions: na.NumQuestions,
		TimeInterval: na.TimeInterval,
		Sequence:     na.Sequence(),
	})
	if err != nil {
		return Assignment{}, errors.Wrap(err, "saving assignment")
	}
	return asg, nil
}

// Delete removes the Assignments and returns how many were found.
func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteAssignmentsByID(ctx, ids)
}

// Share emails the learners a link to start the Assignment.
func (svc *Service) Share(ctx context.Context, id string, sr ShareRequest) error {
	asg, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}

	if asg.IsDraft() {
		return core.NewValidationError(errDraftNotShareable)
	}

	messages := make([]*core.EmailMessage, 0, len(sr.Emails))
	for _, e := range sr.Emails {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Address: e}},
			Subject:      "New drill: " + asg.ID,
			TemplateName: "assignment_shared",
			TemplateData: map[string]interface{}{
				"AssignmentID": asg.ID,
				"NumQuestions": asg.NumQuestions,
				"TimeInterval": asg.TimeInterval,
			},
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return nil
}
