// Package roles manages user roles and the admin role request approval chain.
package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-publisher/clock"
	"social-publisher/database"
	"social-publisher/models"
	"social-publisher/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Registration is the input for a new account.
type Registration struct {
	ID              string `json:"id" validate:"omitempty,max=128"`
	Email           string `json:"email" validate:"required,email"`
	DisplayName     string `json:"display_name" validate:"max=100"`
	NotifyOnPublish bool   `json:"notify_on_publish"`
}

// ChangeOutcome reports what a role change did.
type ChangeOutcome struct {
	// Applied is set when the role was changed directly.
	Applied bool                     `json:"applied"`
	User    *models.User             `json:"user"`
	Request *models.AdminRoleRequest `json:"request,omitempty"`
	// Created is false when an identical pending request already existed.
	Created bool `json:"created"`
}

// Workflow enforces the role authorization matrix.
type Workflow struct {
	store    database.Store
	clock    clock.Clock
	validate *validator.Validate
}

func New(store database.Store, clk clock.Clock) *Workflow {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Workflow{store: store, clock: clk, validate: validator.New()}
}

// RegisterUser creates a plain user account.
func (w *Workflow) RegisterUser(ctx context.Context, reg Registration) (*models.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if err := w.validate.Struct(reg); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			return nil, models.Invalid(strings.ToLower(fields[0].Field()), "failed %s", fields[0].Tag())
		}
		return nil, models.Invalid("", "%v", err)
	}
	id := reg.ID
	if id == "" {
		id = uuid.NewString()
	}
	user := &models.User{
		ID:              id,
		Email:           strings.ToLower(reg.Email),
		DisplayName:     strings.TrimSpace(reg.DisplayName),
		Role:            models.RoleUser,
		NotifyOnPublish: reg.NotifyOnPublish,
		CreatedAt:       w.clock.Now(),
	}
	if err := w.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// EnsureSuperAdmin makes sure the account id exists with the super admin role.
func (w *Workflow) EnsureSuperAdmin(ctx context.Context, id string) error {
	user, err := w.store.GetUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return w.store.CreateUser(ctx, &models.User{
			ID:        id,
			Role:      models.RoleSuperAdmin,
			CreatedAt: w.clock.Now(),
		})
	}
	if err != nil {
		return err
	}
	if user.Role == models.RoleSuperAdmin {
		return nil
	}
	return w.store.UpdateUserRole(ctx, id, user.Role, models.RoleSuperAdmin)
}

// ChangeRole sets target's role to role on behalf of actor. Depending on the
// matrix the change is applied, turned into a pending AdminRoleRequest, or
// refused with models.ErrForbidden. Asking again for a change that is already
// pending returns the existing request.
func (w *Workflow) ChangeRole(ctx context.Context, actor models.Actor, targetID string, role models.Role, reason string) (*ChangeOutcome, error) {
	target, err := w.store.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	decision, err := utils.DecideRoleChange(actor.Role, target.Role, role)
	if err != nil {
		return nil, err
	}

	if decision == utils.DecisionApply {
		if err := w.store.UpdateUserRole(ctx, target.ID, target.Role, role); err != nil {
			return nil, err
		}
		utils.Info("Roles", "ChangeRole", fmt.Sprintf("%s changed %s from %s to %s", actor.ID, target.ID, target.Role, role))
		target.Role = role
		return &ChangeOutcome{Applied: true, User: target}, nil
	}

	existing, err := w.store.FindPendingAdminRequest(ctx, target.ID, role)
	if err == nil {
		return &ChangeOutcome{User: target, Request: existing}, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	req := &models.AdminRoleRequest{
		ID:                uuid.NewString(),
		TargetUserID:      target.ID,
		TargetEmail:       target.Email,
		TargetDisplayName: target.DisplayName,
		RequestedRole:     role,
		CurrentRole:       target.Role,
		RequesterID:       actor.ID,
		RequesterEmail:    actor.Email,
		Reason:            strings.TrimSpace(reason),
		Status:            models.RequestPending,
		CreatedAt:         w.clock.Now(),
	}
	if err := w.store.CreateAdminRequest(ctx, req); err != nil {
		if !errors.Is(err, models.ErrDuplicateRequest) {
			return nil, err
		}
		// Lost a race with an identical request.
		existing, ferr := w.store.FindPendingAdminRequest(ctx, target.ID, role)
		if ferr != nil {
			return nil, err
		}
		return &ChangeOutcome{User: target, Request: existing}, nil
	}
	utils.Info("Roles", "RequestRole", fmt.Sprintf("%s requested %s for %s (request %s)", actor.ID, role, target.ID, req.ID))
	return &ChangeOutcome{User: target, Request: req, Created: true}, nil
}

// DeleteUser removes target's account if the matrix allows actor to.
func (w *Workflow) DeleteUser(ctx context.Context, actor models.Actor, targetID string) error {
	target, err := w.store.GetUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := utils.CheckDelete(actor.Role, target.Role); err != nil {
		return err
	}
	if err := w.store.DeleteUser(ctx, target.ID, target.Role); err != nil {
		return err
	}
	utils.Info("Roles", "DeleteUser", fmt.Sprintf("%s deleted %s", actor.ID, target.ID))
	return nil
}

// ListRequests returns admin role requests with status; admins and above only.
func (w *Workflow) ListRequests(ctx context.Context, actor models.Actor, status models.RequestStatus) ([]*models.AdminRoleRequest, error) {
	if !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("role %s cannot view role requests: %w", actor.Role, models.ErrForbidden)
	}
	return w.store.ListAdminRequests(ctx, status)
}

// ApproveRequest applies the requested role and marks the request approved.
// The role update is conditional on the target's current role and happens
// first; a request is only closed once its role is in place. If closing fails
// the role is put back, so the request stays pending with the role unchanged.
func (w *Workflow) ApproveRequest(ctx context.Context, actor models.Actor, requestID string) (*models.AdminRoleRequest, error) {
	req, err := w.pendingRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	target, err := w.store.GetUser(ctx, req.TargetUserID)
	if err != nil {
		return nil, fmt.Errorf("target of request %s: %w", req.ID, err)
	}
	if target.Role == models.RoleSuperAdmin {
		return nil, fmt.Errorf("super administrator accounts cannot be modified: %w", models.ErrForbidden)
	}

	changed := target.Role != req.RequestedRole
	if changed {
		if err := w.store.UpdateUserRole(ctx, target.ID, target.Role, req.RequestedRole); err != nil {
			return nil, fmt.Errorf("failed to apply role for request %s: %w", req.ID, err)
		}
	}
	if err := w.close(ctx, actor, req, models.RequestApproved); err != nil {
		if changed {
			if rerr := w.store.UpdateUserRole(ctx, target.ID, req.RequestedRole, target.Role); rerr != nil {
				utils.Error("Roles", "ApproveRequest", fmt.Sprintf("request %s not closed and role of %s not restored: %v", req.ID, target.ID, rerr))
			}
		}
		return nil, err
	}
	utils.Info("Roles", "ApproveRequest", fmt.Sprintf("%s approved %s for %s", actor.ID, req.RequestedRole, target.ID))
	return req, nil
}

// RejectRequest marks the request rejected; the target's role is untouched.
func (w *Workflow) RejectRequest(ctx context.Context, actor models.Actor, requestID string) (*models.AdminRoleRequest, error) {
	req, err := w.pendingRequest(ctx, actor, requestID)
	if err != nil {
		return nil, err
	}
	if err := w.close(ctx, actor, req, models.RequestRejected); err != nil {
		return nil, err
	}
	utils.Info("Roles", "RejectRequest", fmt.Sprintf("%s rejected request %s", actor.ID, req.ID))
	return req, nil
}

func (w *Workflow) pendingRequest(ctx context.Context, actor models.Actor, requestID string) (*models.AdminRoleRequest, error) {
	if !utils.CanProcessRoleRequests(actor.Role) {
		return nil, fmt.Errorf("role %s cannot process role requests: %w", actor.Role, models.ErrForbidden)
	}
	req, err := w.store.GetAdminRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, &models.StaleStateError{ID: req.ID, Expected: string(models.RequestPending), Actual: string(req.Status)}
	}
	return req, nil
}

func (w *Workflow) close(ctx context.Context, actor models.Actor, req *models.AdminRoleRequest, status models.RequestStatus) error {
	now := w.clock.Now()
	req.Status = status
	req.ProcessedAt = &now
	req.ProcessedBy = actor.ID
	return w.store.ProcessAdminRequest(ctx, req)
}
