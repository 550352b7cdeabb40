package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"path/filepath"
	"time"

	"phunction/models"
	"phunction/store"
	"phunction/utils"

	"github.com/google/uuid"
)

// XP awards for event participation. The join bonus goes to every joiner;
// the milestone bonus goes to the event creator when the attendee count first
// reaches exactly five.
const (
	JoinXPBonus      = 50
	MilestoneXPBonus = 100
	MilestoneSize    = 5
)

// UserService owns the user aggregate: XP total, membership lists and profile
// fields. Event-side attendee caches are derived copies that this service
// fans out to; the two services never hold references to each other and
// cooperate only through the document store.
type UserService struct {
	Store *store.Store
}

func NewUserService(st *store.Store) *UserService {
	return &UserService{Store: st}
}

// CheckUsernameExists runs the registration-time uniqueness probe. This is a
// plain read: a concurrent registration can still slip in between the check
// and the create.
func (s *UserService) CheckUsernameExists(ctx context.Context, username string) (bool, error) {
	docs, err := s.Store.QueryEqual(ctx, usersCollection, "username", username)
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

// CreateUser registers a new user document with zero XP and empty membership
// lists. Fails with ErrUsernameTaken when the username probe hits.
func (s *UserService) CreateUser(ctx context.Context, userID, username, email string) (*models.User, error) {
	taken, err := s.CheckUsernameExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	now := time.Now()
	user := &models.User{
		ID:             userID,
		Username:       username,
		Email:          email,
		XP:             0,
		EventsAttended: []string{},
		EventsCreated:  []string{},
		CreatedAt:      now,
		LastUpdated:    now,
	}
	if err := s.Store.Set(ctx, usersCollection, userID, user.Doc(), false); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	doc, err := s.Store.Get(ctx, usersCollection, userID)
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return nil, err
	}
	return models.UserFromDoc(userID, doc), nil
}

// UserUpdate carries optional profile edits; nil fields are left untouched.
type UserUpdate struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
	Location       *models.Location
}

func (s *UserService) UpdateUser(ctx context.Context, userID string, update UserUpdate) error {
	fields := map[string]interface{}{
		"lastUpdated": time.Now().Format(time.RFC3339Nano),
	}
	if update.Username != nil {
		fields["username"] = *update.Username
	}
	if update.Bio != nil {
		fields["bio"] = *update.Bio
	}
	if update.ProfilePicture != nil {
		fields["profilePicture"] = *update.ProfilePicture
	}
	if update.Location != nil {
		fields["location"] = map[string]interface{}{
			"city":    update.Location.City,
			"country": update.Location.Country,
		}
	}

	err := s.Store.Update(ctx, usersCollection, userID, fields)
	if errors.Is(err, store.ErrDocNotFound) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return err
}

// AddEventToUser records membership of one event. Idempotent.
func (s *UserService) AddEventToUser(ctx context.Context, userID, eventID string, kind models.MembershipKind) error {
	return addEventMembership(ctx, s.Store, userID, eventID, kind)
}

// RemoveEventFromUser drops membership of one event. No-op when absent.
func (s *UserService) RemoveEventFromUser(ctx context.Context, userID, eventID string, kind models.MembershipKind) error {
	return removeEventMembership(ctx, s.Store, userID, eventID, kind)
}

// UpdateUserXP applies a delta to the authoritative XP total, then fans the
// new total out into every event the user attends or created. The fan-out
// writes are independent: a failure part-way leaves the remaining events
// stale until SyncUserXPAcrossEvents repairs them.
func (s *UserService) UpdateUserXP(ctx context.Context, userID string, delta int) (int, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	newXP := user.XP + delta
	err = s.Store.Update(ctx, usersCollection, userID, map[string]interface{}{
		"xp":          newXP,
		"lastUpdated": time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return 0, err
	}

	if err := s.fanOutXP(ctx, user, newXP); err != nil {
		return newXP, err
	}
	return newXP, nil
}

// SyncUserXPAcrossEvents re-pushes the current stored XP into every event
// cache without changing it. Safe to call repeatedly; this is the sole
// recovery path for partially applied fan-outs.
func (s *UserService) SyncUserXPAcrossEvents(ctx context.Context, userID string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.fanOutXP(ctx, user, user.XP)
}

// fanOutXP writes xp into the attendee record of every event in the union of
// attended and created events, deduplicated by event id.
func (s *UserService) fanOutXP(ctx context.Context, user *models.User, xp int) error {
	eventIDs := map[string]bool{}
	for _, id := range user.EventsAttended {
		eventIDs[id] = true
	}
	created, err := s.Store.QueryEqual(ctx, eventsCollection, "createdBy", user.ID)
	if err != nil {
		return err
	}
	for _, doc := range created {
		eventIDs[doc.ID] = true
	}

	for eventID := range eventIDs {
		if err := writeAttendeeXP(ctx, s.Store, eventID, user.ID, xp); err != nil {
			return fmt.Errorf("failed to sync xp into event %s: %w", eventID, err)
		}
	}
	return nil
}

// UploadProfilePicture stores the image and returns its public URL. The
// caller is expected to follow up with UpdateUser to point the profile at it.
func (s *UserService) UploadProfilePicture(file *multipart.FileHeader) (string, error) {
	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := "profile-pictures/" + uuid.NewString() + ext
	return utils.UploadFile(file, key)
}

// DeleteProfilePicture removes the stored image. Best effort: failures are
// logged and swallowed so profile updates never hinge on storage cleanup.
func (s *UserService) DeleteProfilePicture(imageURL string) {
	if imageURL == "" {
		return
	}
	if err := utils.DeleteFile(imageURL); err != nil {
		log.Printf("⚠️ Failed to delete profile picture %s: %v", imageURL, err)
	}
}
