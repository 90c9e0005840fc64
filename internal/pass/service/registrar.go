package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
	"github.com/aussiebroadwan/gatepass/internal/pass/state"
	"github.com/aussiebroadwan/gatepass/internal/pass/store"
	"github.com/aussiebroadwan/gatepass/pkg/cryptox"
	"github.com/aussiebroadwan/gatepass/pkg/gateapi"
	"github.com/golang-jwt/jwt/v5"
)

// ErrRegistrationInFlight rejects a re-entrant registration submit while an
// upload sequence is still running.
var ErrRegistrationInFlight = errors.New("registration already in flight")

// PushTokenFunc supplies the platform's push-notification token. Platforms
// without a push provider leave it nil.
type PushTokenFunc func(ctx context.Context) (string, error)

// Registrar owns login, session restoration and the device binding.
type Registrar struct {
	api       *gateapi.Client
	store     store.Store
	sealer    *cryptox.Sealer
	appstate  *state.Store
	logger    *slog.Logger
	platform  string
	pushToken PushTokenFunc
	clock     func() time.Time

	registering atomic.Bool
}

// RegistrarConfig wires a Registrar.
type RegistrarConfig struct {
	API       *gateapi.Client
	Store     store.Store
	Sealer    *cryptox.Sealer
	AppState  *state.Store
	Logger    *slog.Logger
	Platform  string           // reported to register-device, default "web"
	PushToken PushTokenFunc    // optional push-notification token source
	Clock     func() time.Time // defaults to time.Now
}

func NewRegistrar(cfg RegistrarConfig) *Registrar {
	if cfg.Platform == "" {
		cfg.Platform = "web"
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registrar{
		api:       cfg.API,
		store:     cfg.Store,
		sealer:    cfg.Sealer,
		appstate:  cfg.AppState,
		logger:    cfg.Logger,
		platform:  cfg.Platform,
		pushToken: cfg.PushToken,
		clock:     cfg.Clock,
	}
}

// Login authenticates the resident and establishes a persisted session:
// authenticate, load the property record, run the entitlement check,
// register this device against the resident's device ceiling, then seal and
// persist the token and identity together.
func (r *Registrar) Login(ctx context.Context, phone, password string) (domain.ResidentIdentity, error) {
	resp, err := r.api.Login(ctx, phone, password)
	if err != nil {
		return domain.ResidentIdentity{}, err
	}
	if resp.RequiresEmailVerification {
		return domain.ResidentIdentity{}, domain.ErrEmailUnverified
	}
	if resp.RequiresEmail {
		return domain.ResidentIdentity{}, domain.ErrEmailMissing
	}

	r.api.SetBearer(resp.Token)

	identity, err := r.fetchIdentity(ctx, phone)
	if err != nil {
		r.api.SetBearer("")
		return domain.ResidentIdentity{}, err
	}
	if err := identity.Entitled(r.clock()); err != nil {
		r.api.SetBearer("")
		return domain.ResidentIdentity{}, err
	}

	deviceID, err := r.DeviceID(ctx)
	if err != nil {
		r.api.SetBearer("")
		return domain.ResidentIdentity{}, err
	}
	if err := r.api.RegisterDevice(ctx, identity.HostID, deviceID, r.platform); err != nil {
		r.api.SetBearer("")
		if errors.Is(err, gateapi.ErrDeviceLimitReached) {
			return domain.ResidentIdentity{}, fmt.Errorf("%w: %v", domain.ErrDeviceLimit, err)
		}
		return domain.ResidentIdentity{}, err
	}

	if err := r.persistSession(ctx, resp.Token, identity); err != nil {
		r.api.SetBearer("")
		return domain.ResidentIdentity{}, err
	}

	if r.appstate != nil {
		r.appstate.Dispatch(state.SetResident{Resident: identity})
	}
	r.registerPushToken(ctx, identity.HostID, deviceID)
	r.logger.Info("login succeeded", "host_id", identity.HostID)
	return identity, nil
}

// registerPushToken stores the platform push token best-effort. A missing
// provider or a failed call never blocks the login.
func (r *Registrar) registerPushToken(ctx context.Context, hostID, deviceID string) {
	if r.pushToken == nil {
		return
	}
	token, err := r.pushToken(ctx)
	if err != nil || token == "" {
		if err != nil {
			r.logger.Warn("push token unavailable", "error", err)
		}
		return
	}
	if err := r.api.StoreNotificationToken(ctx, hostID, deviceID, token); err != nil {
		r.logger.Warn("push token registration failed", "error", err)
	}
}

// RestoreSession re-establishes a session from the persisted token.
//
// An absent or invalid token is not an error: it clears all persisted
// session state and returns (nil, nil). A valid token triggers a fresh
// property fetch so server-side changes since issuance (revoked
// verification, expired rental) are caught; those reject and clear the
// session with the corresponding business error. Transport failures leave
// the persisted session in place and are returned as errors.
func (r *Registrar) RestoreSession(ctx context.Context) (*domain.ResidentIdentity, error) {
	sealedToken, sealedIdentity, err := r.store.Sessions().Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	token, err := r.sealer.Open(sealedToken)
	if err != nil {
		r.logger.Warn("persisted token unreadable, clearing session", "error", err)
		return nil, r.clearSession(ctx)
	}

	// Cheap local check before the network round trip. The server stays
	// authoritative; this only short-circuits tokens that are already dead.
	if expired, ok := tokenExpired(string(token), r.clock()); ok && expired {
		return nil, r.clearSession(ctx)
	}

	valid, err := r.api.VerifyToken(ctx, string(token))
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, r.clearSession(ctx)
	}

	var cached domain.ResidentIdentity
	if plain, err := r.sealer.Open(sealedIdentity); err != nil {
		r.logger.Warn("persisted identity unreadable, clearing session", "error", err)
		return nil, r.clearSession(ctx)
	} else if err := json.Unmarshal(plain, &cached); err != nil {
		return nil, r.clearSession(ctx)
	}

	r.api.SetBearer(string(token))

	identity, err := r.fetchIdentity(ctx, cached.Phone)
	if err != nil {
		r.api.SetBearer("")
		return nil, err
	}
	if err := identity.Entitled(r.clock()); err != nil {
		r.api.SetBearer("")
		if clearErr := r.clearSession(ctx); clearErr != nil {
			return nil, clearErr
		}
		return nil, err
	}

	if r.appstate != nil {
		r.appstate.Dispatch(state.SetResident{Resident: identity})
	}
	return &identity, nil
}

// Logout releases the device binding and push token best-effort, then clears
// the persisted session. The device identifier itself is retained for the
// next login.
func (r *Registrar) Logout(ctx context.Context) error {
	var hostID string
	if r.appstate != nil {
		if res := r.appstate.Resident(); res != nil {
			hostID = res.HostID
		}
	}

	if hostID != "" {
		if deviceID, err := r.store.Devices().ID(ctx); err == nil {
			if err := r.api.RemoveDevice(ctx, hostID, deviceID); err != nil {
				r.logger.Warn("device removal failed", "error", err)
			}
			if err := r.api.DeleteNotificationToken(ctx, hostID, deviceID); err != nil {
				r.logger.Warn("notification token delete failed", "error", err)
			}
		}
	}

	err := r.clearSession(ctx)
	if r.appstate != nil {
		r.appstate.Dispatch(state.ClearResident{})
	}
	return err
}

// DeviceID returns this install's device identifier, minting and persisting
// one on first use. The same value is reused for every subsequent login.
func (r *Registrar) DeviceID(ctx context.Context) (string, error) {
	id, err := r.store.Devices().ID(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	binding := domain.NewDeviceBinding()
	if err := r.store.Devices().SaveID(ctx, binding.ID); err != nil {
		return "", err
	}
	return binding.ID, nil
}

// RegisterAccount submits a resident application together with its document
// uploads. Submissions are rejected while a previous upload sequence is
// still in flight.
func (r *Registrar) RegisterAccount(ctx context.Context, req gateapi.RegisterRequest, documents [][]byte) error {
	if !r.registering.CompareAndSwap(false, true) {
		return ErrRegistrationInFlight
	}
	defer r.registering.Store(false)

	// Validate everything before touching the network so a bad file never
	// leaves a half-submitted application.
	normalized := make([][]byte, len(documents))
	types := make([]gateapi.ImageType, len(documents))
	for idx, doc := range documents {
		data, typ, err := gateapi.NormalizeUpload(doc)
		if err != nil {
			return err
		}
		normalized[idx] = data
		types[idx] = typ
	}

	resp, err := r.api.Register(ctx, req)
	if err != nil {
		return err
	}
	if len(resp.UploadURLs) < len(normalized) {
		return fmt.Errorf("register: got %d upload urls for %d documents", len(resp.UploadURLs), len(normalized))
	}

	for idx, data := range normalized {
		if err := r.api.UploadBlob(ctx, resp.UploadURLs[idx], data, types[idx]); err != nil {
			return fmt.Errorf("upload document %d: %w", idx+1, err)
		}
	}
	return nil
}

func (r *Registrar) fetchIdentity(ctx context.Context, phone string) (domain.ResidentIdentity, error) {
	host, err := r.api.SearchProperty(ctx, phone)
	if err != nil {
		return domain.ResidentIdentity{}, err
	}
	return hostToIdentity(host)
}

func (r *Registrar) persistSession(ctx context.Context, token string, identity domain.ResidentIdentity) error {
	sealedToken, err := r.sealer.Seal([]byte(token))
	if err != nil {
		return err
	}
	plain, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	sealedIdentity, err := r.sealer.Seal(plain)
	if err != nil {
		return err
	}
	return r.store.Sessions().Save(ctx, sealedToken, sealedIdentity)
}

func (r *Registrar) clearSession(ctx context.Context) error {
	r.api.SetBearer("")
	return r.store.Sessions().Clear(ctx)
}

// hostToIdentity maps the normalized API record into the domain identity.
func hostToIdentity(h gateapi.Host) (domain.ResidentIdentity, error) {
	identity := domain.ResidentIdentity{
		HostID:   h.HostID,
		Name:     h.Name,
		Building: h.Building,
		Flat:     h.Flat,
		UnitType: h.UnitType,
		Phone:    h.Phone,
		Verified: h.IsVerified,
	}
	if identity.HostID == "" {
		identity.HostID = domain.FormatHostID(h.Building, h.Flat, h.UnitType)
	}
	if h.RentalEndDate != "" {
		expiry, err := time.Parse(time.RFC3339, h.RentalEndDate)
		if err != nil {
			return domain.ResidentIdentity{}, fmt.Errorf("parse rental end date: %w", err)
		}
		identity.RentalExpiry = &expiry
	}
	return identity, nil
}

// tokenExpired inspects the bearer token's exp claim without verifying the
// signature. The second return is false when the token is not a parseable
// JWT or has no expiry, in which case no local decision is made.
func tokenExpired(token string, now time.Time) (bool, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, false
	}
	return exp.Before(now), true
}
