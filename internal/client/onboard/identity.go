package onboard

import (
	"github.com/google/uuid"
	"github.com/onboardkit/onboardkit/internal/client/kvstore"
	"go.uber.org/zap"
)

// DeviceID returns the stable per-installation identifier, generating and
// persisting a new one on first use. The id is what keeps A/B flow
// allocation consistent for a device across sessions.
//
// Persistence is best effort: if the store cannot save the fresh id, the id
// is still returned and used for the current session. It just will not
// survive a restart, which costs at worst one re-allocation.
func DeviceID(store kvstore.Store, logger *zap.Logger) string {
	if id, ok := store.Get(kvstore.KeyDeviceID); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	if err := store.Set(kvstore.KeyDeviceID, id); err != nil {
		logger.Warn("device id not persisted, using in-memory id for this session",
			zap.Error(err))
	}
	return id
}
