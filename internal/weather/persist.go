package weather

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// persistedSchemaVersion is bumped whenever persistedState changes shape.
// Blobs written with any other version are discarded on load.
const persistedSchemaVersion = 1

var errSchemaMismatch = errors.New("persisted state schema mismatch")

// persistedState is the blob written under the storage key after every
// state change. Transient fields (status, error, search results) are not
// persisted.
type persistedState struct {
	Version     int               `json:"version"`
	Units       UnitPreferences   `json:"units"`
	Location    *Location         `json:"location"`
	WeatherData *ForecastSnapshot `json:"weatherData"`
	SavedAt     time.Time         `json:"savedAt"`
}

func encodePersisted(st State, now time.Time) ([]byte, error) {
	return json.Marshal(persistedState{
		Version:     persistedSchemaVersion,
		Units:       st.Units,
		Location:    st.Location,
		WeatherData: st.WeatherData,
		SavedAt:     now,
	})
}

func decodePersisted(data []byte) (persistedState, error) {
	var p persistedState
	if err := json.Unmarshal(data, &p); err != nil {
		return persistedState{}, fmt.Errorf("decode persisted state: %w", err)
	}
	if p.Version != persistedSchemaVersion {
		return persistedState{}, fmt.Errorf("%w: got version %d, want %d", errSchemaMismatch, p.Version, persistedSchemaVersion)
	}
	if err := p.Units.Validate(); err != nil {
		return persistedState{}, err
	}
	return p, nil
}
