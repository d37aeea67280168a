package app

import (
	"context"
	"fmt"
	"log/slog"

	"flame/service/metrics"
)

// Service applies add/update/delete requests to the store, moving uploaded
// icons in and out of the icon store alongside.
type Service struct {
	store  *Store
	icons  *IconStore
	logger *slog.Logger
}

func NewService(store *Store, icons *IconStore, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		icons:  icons,
		logger: logger,
	}
}

func (s *Service) Icons() *IconStore {
	return s.icons
}

func (s *Service) Add(ctx context.Context, p Payload) (created *App, err error) {
	defer func() { metrics.RecordAppAction("add", err) }()

	fields := p.Fields
	if err := fields.Validate(p.IsMultipart()); err != nil {
		return nil, err
	}

	if p.IsMultipart() {
		name, err := s.icons.Save(p.Icon)
		if err != nil {
			return nil, err
		}
		fields.Icon = name
	}

	created, err = s.store.Create(ctx, fields)
	if err != nil {
		s.discardIcon(p, fields.Icon)
		return nil, err
	}

	s.logger.Info("App added", "id", created.ID, "name", created.Name, "public", created.IsPublic)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, p Payload) (updated *App, err error) {
	defer func() { metrics.RecordAppAction("update", err) }()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	fields := p.Fields
	if err := fields.Validate(p.IsMultipart()); err != nil {
		return nil, err
	}

	if p.IsMultipart() {
		name, err := s.icons.Save(p.Icon)
		if err != nil {
			return nil, err
		}
		fields.Icon = name
	}

	updated, err = s.store.Update(ctx, id, fields)
	if err != nil {
		s.discardIcon(p, fields.Icon)
		return nil, err
	}

	if existing.Icon != updated.Icon {
		s.releaseIcon(ctx, existing.Icon)
	}

	s.logger.Info("App updated", "id", updated.ID, "name", updated.Name, "public", updated.IsPublic)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	defer func() { metrics.RecordAppAction("delete", err) }()

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.releaseIcon(ctx, existing.Icon)

	s.logger.Info("App deleted", "id", id, "name", existing.Name)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*App, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, includeHidden bool) ([]App, error) {
	return s.store.List(ctx, includeHidden)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) discardIcon(p Payload, name string) {
	if !p.IsMultipart() {
		return
	}
	if err := s.icons.Remove(name); err != nil {
		s.logger.Warn("Failed to remove orphaned icon", "icon", name, "error", err)
	}
}

// releaseIcon removes an uploaded icon once no app references it. Plain
// payloads may name an existing upload, so several apps can share one file.
func (s *Service) releaseIcon(ctx context.Context, icon string) {
	if !s.icons.IsUploaded(icon) {
		return
	}

	refs, err := s.store.CountByIcon(ctx, icon)
	if err != nil {
		s.logger.Warn("Failed to count icon references", "icon", icon, "error", err)
		return
	}
	if refs > 0 {
		s.logger.Debug("Icon still in use", "icon", icon, "refs", refs)
		return
	}

	if err := s.icons.Remove(icon); err != nil {
		s.logger.Warn("Failed to remove unused icon", "icon", icon, "error", err)
	}
}
