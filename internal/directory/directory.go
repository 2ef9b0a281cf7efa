package directory

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/drivers"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Directory serves user records and the device registry.
//
// User records are read from disk on every lookup so edits take effect
// without a restart. Devices and their drivers are loaded once by Load.
type Directory struct {
	usersDir string
	devices  map[string]*entry
	log      *zap.Logger
}

type entry struct {
	descriptor models.DeviceDescriptor
	driverType string
	driver     core.Driver
}

// Load reads every device record under devicesDir and builds its driver.
// Any unreadable record or driver configuration fails the whole load.
func Load(usersDir, devicesDir string, log *zap.Logger) (*Directory, error) {
	if log == nil {
		log = zap.NewNop()
	}

	files, err := os.ReadDir(devicesDir)
	if err != nil {
		return nil, fmt.Errorf("read devices directory: %w", err)
	}

	d := &Directory{
		usersDir: usersDir,
		devices:  make(map[string]*entry),
		log:      log,
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		id, ok := recordID(f.Name())
		if !ok {
			continue
		}
		if _, dup := d.devices[id]; dup {
			return nil, fmt.Errorf("%w: device %s is defined more than once", ErrInvalidRecord, id)
		}

		var rec deviceRecord
		if err := decodeRecord(filepath.Join(devicesDir, f.Name()), &rec); err != nil {
			return nil, err
		}
		if rec.Type == "" {
			return nil, fmt.Errorf("%w: device %s has no type", ErrInvalidRecord, id)
		}
		rec.ID = id

		drv, err := drivers.New(id, rec.Driver, log)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", id, err)
		}
		d.devices[id] = &entry{
			descriptor: rec.DeviceDescriptor,
			driverType: rec.Driver.Type,
			driver:     drv,
		}
	}

	log.Info("device directory loaded",
		zap.Int("devices", len(d.devices)),
		zap.String("devices_dir", devicesDir),
		zap.String("users_dir", usersDir),
	)
	return d, nil
}

// LookupUser reads the record of userID.
func (d *Directory) LookupUser(userID string) (*models.User, error) {
	if !validRecordID(userID) {
		return nil, ErrUserNotFound
	}
	path, err := findRecord(d.usersDir, userID)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}

	var u models.User
	if err := decodeRecord(path, &u); err != nil {
		return nil, err
	}
	u.ID = userID
	return &u, nil
}

// Authenticate checks password against the user's record.
func (d *Directory) Authenticate(userID, password string) (*models.User, error) {
	u, err := d.LookupUser(userID)
	if err != nil {
		return nil, err
	}

	if u.HasPasswordHash() {
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidPassword
		}
		return u, nil
	}
	if u.Password == "" ||
		subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return nil, ErrInvalidPassword
	}
	return u, nil
}

// ListUserIDs returns the identifiers of all user records, sorted.
func (d *Directory) ListUserIDs() ([]string, error) {
	files, err := os.ReadDir(d.usersDir)
	if err != nil {
		return nil, fmt.Errorf("read users directory: %w", err)
	}

	seen := make(map[string]struct{}, len(files))
	ids := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		id, ok := recordID(f.Name())
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Resolve returns the SYNC descriptor of deviceID.
func (d *Directory) Resolve(deviceID string) (models.DeviceDescriptor, error) {
	e, ok := d.devices[deviceID]
	if !ok {
		return models.DeviceDescriptor{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return e.descriptor, nil
}

// DriverFor returns the driver registered for deviceID.
func (d *Directory) DriverFor(deviceID string) (core.Driver, error) {
	e, ok := d.devices[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	return e.driver, nil
}

// DriverType returns the configured driver kind of deviceID, or "" when
// the device is unknown.
func (d *Directory) DriverType(deviceID string) string {
	if e, ok := d.devices[deviceID]; ok {
		return e.driverType
	}
	return ""
}

// ListForUser resolves the user's devices in declared order. A device id
// that does not resolve fails the whole listing.
func (d *Directory) ListForUser(userID string) ([]models.DeviceDescriptor, error) {
	u, err := d.LookupUser(userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.DeviceDescriptor, 0, len(u.Devices))
	for _, id := range u.Devices {
		desc, err := d.Resolve(id)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", userID, err)
		}
		out = append(out, desc)
	}
	return out, nil
}

// DeviceCount returns the number of registered devices.
func (d *Directory) DeviceCount() int {
	return len(d.devices)
}
