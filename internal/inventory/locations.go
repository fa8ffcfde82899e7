package inventory

import (
	"context"

	"github.com/arbitroy/stockflow/backend/internal/logging"
	"github.com/arbitroy/stockflow/backend/internal/models"
	"github.com/arbitroy/stockflow/backend/internal/notify"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/uuid"
)

// Ids of the locations served when neither the API nor the cache has any.
const (
	DefaultWarehouseID = "default-warehouse"
	DefaultStoreID     = "default-store"
)

// DefaultLocations is the degraded location set.
func DefaultLocations() []models.Location {
	return []models.Location{
		{ID: DefaultWarehouseID, Name: "Main Warehouse", Type: models.LocationWarehouse},
		{ID: DefaultStoreID, Name: "Main Store", Type: models.LocationStore},
	}
}

// ListLocations returns all locations. With no API and no cache it returns
// DefaultLocations so location pickers keep working.
func (s *Service) ListLocations(ctx context.Context) ([]models.Location, error) {
	remoteErr := errOfflineMode
	if s.tryRemote() {
		locs, err := s.remote.ListLocations(ctx)
		if err == nil {
			s.cache.SetLocations(locs)
			return locs, nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	if locs, ok := s.cache.Locations(); ok {
		s.usingCache("locations", remoteErr)
		return locs, nil
	}

	logging.Warn("no locations available, using defaults", map[string]interface{}{"cause": remoteErr.Error()})
	s.notifier.Notify(notify.New(notify.EventDefaultLocations, notify.LevelWarning,
		"Locations unavailable, using default locations", nil))
	return DefaultLocations(), nil
}

// GetLocation returns one location.
func (s *Service) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	if uuid.IsTemporary(id) {
		loc, ok := s.cache.Location(id)
		if !ok {
			return nil, notFound("location %s not found", id)
		}
		return &loc, nil
	}

	remoteErr := errOfflineMode
	if s.tryRemote() {
		loc, err := s.remote.GetLocation(ctx, id)
		if err == nil {
			s.cache.PutLocation(*loc)
			return loc, nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	loc, ok := s.cache.Location(id)
	if !ok {
		return nil, remoteErr
	}
	s.usingCache("locations", remoteErr)
	return &loc, nil
}

// LocationInventory returns the stock held at a location.
func (s *Service) LocationInventory(ctx context.Context, locationID string) ([]models.LocationInventory, error) {
	if uuid.IsTemporary(locationID) {
		rows, _ := s.cache.Inventory(locationID)
		if rows == nil {
			rows = []models.LocationInventory{}
		}
		return rows, nil
	}

	remoteErr := errOfflineMode
	if s.tryRemote() {
		rows, err := s.remote.LocationInventory(ctx, locationID)
		if err == nil {
			s.cache.SetInventory(locationID, rows)
			return rows, nil
		}
		if !cacheFallback(err) {
			return nil, err
		}
		remoteErr = err
	}

	rows, ok := s.cache.Inventory(locationID)
	if !ok {
		return nil, remoteErr
	}
	s.usingCache("inventory", remoteErr)
	return rows, nil
}

// CreateLocation creates a location.
func (s *Service) CreateLocation(ctx context.Context, loc models.Location) (*models.Location, error) {
	if err := validateLocation(loc); err != nil {
		return nil, err
	}
	loc.ID = ""

	if s.direct() {
		created, err := s.remote.CreateLocation(ctx, loc)
		if err == nil {
			s.cache.PutLocation(*created)
			return created, nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	loc.CreatedAt, loc.UpdatedAt = "", ""
	tempID := uuid.NewTemp()
	if _, err := s.queue.Enqueue(queue.CreateLocation{TempID: tempID, Location: loc}); err != nil {
		return nil, err
	}
	loc.ID = tempID
	s.cache.PutLocation(loc)
	s.cache.SetInventory(tempID, nil)
	return &loc, nil
}

// UpdateLocation replaces a location's name and type.
func (s *Service) UpdateLocation(ctx context.Context, id string, loc models.Location) (*models.Location, error) {
	if id == "" {
		return nil, invalid("location id is required")
	}
	if err := validateLocation(loc); err != nil {
		return nil, err
	}
	loc.ID = id

	if s.direct(id) {
		updated, err := s.remote.UpdateLocation(ctx, id, loc)
		if err == nil {
			s.cache.PutLocation(*updated)
			return updated, nil
		}
		if !offlineFallback(err) {
			return nil, err
		}
	}

	cached, ok := s.cache.Location(id)
	if !ok {
		return nil, notFound("location %s not found", id)
	}
	if _, err := s.queue.Enqueue(queue.UpdateLocation{ID: id, Location: loc}); err != nil {
		return nil, err
	}
	cached.Name = loc.Name
	cached.Type = loc.Type
	s.cache.PutLocation(cached)
	return &cached, nil
}

// DeleteLocation deletes a location.
func (s *Service) DeleteLocation(ctx context.Context, id string) error {
	if id == "" {
		return invalid("location id is required")
	}

	if s.direct(id) {
		err := s.remote.DeleteLocation(ctx, id)
		if err == nil {
			s.cache.RemoveLocation(id)
			return nil
		}
		if !offlineFallback(err) {
			return err
		}
	}

	if _, err := s.queue.Enqueue(queue.DeleteLocation{ID: id}); err != nil {
		return err
	}
	s.cache.RemoveLocation(id)
	return nil
}

func validateLocation(loc models.Location) error {
	if loc.Name == "" {
		return invalid("location name is required")
	}
	switch loc.Type {
	case models.LocationWarehouse, models.LocationStore:
		return nil
	}
	return invalid("unknown location type %q", loc.Type)
}
