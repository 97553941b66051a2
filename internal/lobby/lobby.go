// internal/lobby/lobby.go
package lobby

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Cryptverse/routing-server/internal/protocol"
)

// ErrLobbyClosed is returned by AddClient when the owner has already
// disconnected and the lobby is being torn down.
var ErrLobbyClosed = errors.New("lobby closed")

// maxRarities caps the first element of an array-shaped resources value.
const maxRarities = 30

// Conn is the minimal connection surface the lobby needs from either role.
// Sends are best-effort: the lobby logs failures and drops the frame.
type Conn interface {
	Send(p []byte) error
	Close()
}

// Sink receives analytics payloads relayed by trusted direct-connect owners.
type Sink interface {
	RelayedVisit(encoded, totalTime, gamemode string, biome int)
}

// Lobby is one relay session: an owner connection plus any number of client
// connections addressed by small ids. All mutation happens under mu; the owner
// connection drives configuration, clients only trigger relay and detach.
type Lobby struct {
	PartyCode string
	Name      string

	mu            sync.Mutex
	isModded      bool
	isPrivate     bool
	secretKey     string
	gamemode      string
	biome         int
	trusted       string
	directConnect *DirectConnect
	resources     any
	readySent     bool
	destroyed     bool

	owner    Conn
	clients  map[uint16]Conn
	ids      *IDPool
	registry *Registry

	admins    map[string]string
	analytics Sink
	logger    *logrus.Entry
}

// New constructs a lobby for the given owner connection. The name is validated
// for length and against the prohibited-content predicate, and a unique party
// code is generated and reserved in the registry immediately so there is no
// window between generation and registration.
func New(owner Conn, rawName string, prohibited func(string) bool, reg *Registry, logger *logrus.Logger) (*Lobby, error) {
	name, err := validateName(rawName)
	if err != nil {
		return nil, err
	}
	if prohibited != nil && prohibited(name) {
		return nil, &ValidationError{Field: "gameName", Message: "Please do not use vulgar profanity in your game name"}
	}

	return &Lobby{
		PartyCode: reg.ReserveCode(),
		Name:      name,
		gamemode:  Gamemodes[0],
		owner:     owner,
		clients:   make(map[uint16]Conn),
		ids:       NewIDPool(),
		registry:  reg,
		logger:    logger.WithField("lobby", name),
	}, nil
}

// Define validates every configuration field against its domain, failing on
// the first invalid one. The secret key is then matched against the trust
// table: a hit records the trusted identity, a miss is silently untrusted
// (a wrong key is not an error).
func (l *Lobby) Define(isModded, isPrivate, secretKey, gamemode, biome string, trustTable map[string]string) error {
	modded, err := validateYesNo("isModded", isModded)
	if err != nil {
		return err
	}
	private, err := validateYesNo("isPrivate", isPrivate)
	if err != nil {
		return err
	}
	key, err := validateSecretKey(secretKey)
	if err != nil {
		return err
	}
	mode, err := validateGamemode(gamemode)
	if err != nil {
		return err
	}
	biomeID, err := validateBiome(biome)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.isModded = modded
	l.isPrivate = private
	l.secretKey = key
	l.gamemode = mode
	l.biome = biomeID
	if key != "" {
		for name, secret := range trustTable {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(key)) == 1 {
				l.trusted = name
				break
			}
		}
	}
	return nil
}

// SetAdminTable supplies the secret->name admin mapping consulted on client
// attach.
func (l *Lobby) SetAdminTable(admins map[string]string) {
	l.mu.Lock()
	l.admins = admins
	l.mu.Unlock()
}

// SetAnalytics supplies the sink for owner-relayed analytics payloads.
func (l *Lobby) SetAnalytics(sink Sink) {
	l.mu.Lock()
	l.analytics = sink
	l.mu.Unlock()
}

// SetDirectConnect publishes the address/timezone hint. Only a non-private,
// trusted lobby may carry one.
func (l *Lobby) SetDirectConnect(address string, timeZone int) error {
	if len(address) < 1 || len(address) > 64 {
		return &ValidationError{Field: "directConnect", Message: "address must be a string for a valid connection address between 1 and 64 characters long"}
	}
	if timeZone < -12 || timeZone > 14 {
		return &ValidationError{Field: "directConnect", Message: "timeZone must be a number representing the timezone your server is in between -12 and 14"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isPrivate {
		return &ValidationError{Field: "directConnect", Message: "Cannot set direct connect on a private lobby"}
	}
	if l.trusted == "" {
		return &ValidationError{Field: "directConnect", Message: "Cannot set direct connect on an untrusted lobby"}
	}
	l.directConnect = &DirectConnect{Address: address, TimeZone: timeZone}
	return nil
}

// Activate inserts the lobby into the registry, making it reachable by party
// code. Irreversible until Destroy.
func (l *Lobby) Activate() {
	l.registry.activate(l)

	l.mu.Lock()
	trusted, private := l.trusted, l.isPrivate
	gamemode, biome := l.gamemode, l.biome
	dc := l.directConnect
	l.mu.Unlock()

	entry := l.logger.WithFields(logrus.Fields{
		"partyCode": l.PartyCode,
		"private":   private,
		"gamemode":  gamemode,
		"biome":     biome,
	})
	if trusted != "" {
		entry = entry.WithField("trustedBy", trusted)
	}
	if dc != nil {
		entry = entry.WithField("directConnectTZ", dc.TimeZone)
	}
	entry.Info("lobby created")
}

// Destroy removes the lobby from the registry and force-closes every attached
// client connection. Safe to call more than once; only the first call acts.
func (l *Lobby) Destroy() {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return
	}
	l.destroyed = true
	clients := l.clients
	l.clients = make(map[uint16]Conn)
	l.mu.Unlock()

	l.registry.remove(l.PartyCode)
	for _, conn := range clients {
		conn.Close()
	}
	l.logger.Info("lobby destroyed")
}

// AddClient allocates an id for the connection, records it, and announces the
// join to the owner with the admin flag and the identity token. An exhausted
// pool propagates as ErrPoolExhausted ("lobby full").
func (l *Lobby) AddClient(conn Conn, token, adminSecret string) (uint16, error) {
	l.mu.Lock()
	if l.destroyed {
		l.mu.Unlock()
		return 0, ErrLobbyClosed
	}
	id, err := l.ids.Allocate()
	if err != nil {
		l.mu.Unlock()
		return 0, err
	}
	l.clients[id] = conn
	admin := ""
	if adminSecret != "" {
		admin = l.admins[adminSecret]
	}
	l.mu.Unlock()

	l.send(l.owner, protocol.ClientJoined(id, admin != "", token))
	if admin != "" {
		l.logger.Infof("client %d joined (admin: %s)", id, admin)
	} else {
		l.logger.Infof("client %d joined", id)
	}
	return id, nil
}

// RemoveClient detaches the client holding id: closes its connection, releases
// the id and announces the leave to the owner. Unknown ids are a no-op.
func (l *Lobby) RemoveClient(id uint16) {
	l.mu.Lock()
	conn, ok := l.clients[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.clients, id)
	l.ids.Release(id)
	l.mu.Unlock()

	conn.Close()
	l.send(l.owner, protocol.ClientLeft(id))
	l.logger.Infof("client %d left", id)
}

// HandleOwnerFrame dispatches one binary frame received on the owner
// connection. Unknown opcodes and undersized frames are silently ignored.
func (l *Lobby) HandleOwnerFrame(frame []byte) {
	if len(frame) == 0 {
		return
	}
	switch frame[0] {
	case protocol.OwnerRemoveClient:
		if id, ok := protocol.U16(frame, 1); ok {
			l.RemoveClient(id)
		}
	case protocol.OwnerPipe:
		l.pipe(frame)
	case protocol.OwnerResources:
		l.setResources(frame[1:])
	case protocol.OwnerAnalytics:
		l.relayAnalytics(frame[1:])
	}
}

// RelayFromClient envelopes a raw client payload and forwards it to the owner.
// Empty and oversized frames are dropped, never relayed, never erred.
func (l *Lobby) RelayFromClient(id uint16, payload []byte) {
	if len(payload) == 0 || len(payload) > protocol.MaxClientFrame {
		return
	}
	l.send(l.owner, protocol.ClientRelay(id, payload))
}

// pipe forwards an owner payload verbatim to one client, or to every attached
// client when the target is the broadcast id. An unknown target is a silent
// no-op.
func (l *Lobby) pipe(frame []byte) {
	target, ok := protocol.U16(frame, 1)
	if !ok {
		return
	}
	payload := frame[3:]

	l.mu.Lock()
	var targets []Conn
	if target == protocol.BroadcastID {
		targets = make([]Conn, 0, len(l.clients))
		for _, conn := range l.clients {
			targets = append(targets, conn)
		}
	} else if conn, ok := l.clients[target]; ok {
		targets = []Conn{conn}
	}
	l.mu.Unlock()

	for _, conn := range targets {
		l.send(conn, payload)
	}
}

// setResources replaces the owner-controlled resources value from a JSON
// frame. The first accepted set triggers the one-time ready acknowledgment
// carrying the party code.
func (l *Lobby) setResources(body []byte) {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		l.send(l.owner, protocol.ControlError("Invalid JSON resources"))
		return
	}

	l.mu.Lock()
	l.resources = value
	tooMany := false
	if arr, ok := value.([]any); ok && len(arr) > 0 {
		if n, ok := arr[0].(float64); ok && n > maxRarities {
			tooMany = true
		}
	}
	ready := false
	if !tooMany && !l.readySent {
		l.readySent = true
		ready = true
	}
	l.mu.Unlock()

	if tooMany {
		l.send(l.owner, protocol.ControlError("You have too many rarities! Quantity must be less than or equal to 30."))
		return
	}
	if ready {
		l.send(l.owner, protocol.ControlSuccess(l.PartyCode))
	}
}

// relayAnalytics forwards an owner-relayed visit record to the analytics sink.
// Only trusted lobbies with a direct connect may relay; anything malformed is
// dropped without an error.
func (l *Lobby) relayAnalytics(body []byte) {
	l.mu.Lock()
	eligible := l.trusted != "" && l.directConnect != nil
	sink := l.analytics
	gamemode, biome := l.gamemode, l.biome
	l.mu.Unlock()

	if !eligible || sink == nil {
		return
	}
	sep := bytes.IndexByte(body, 0)
	if sep < 0 {
		return
	}
	sink.RelayedVisit(string(body[:sep]), string(body[sep+1:]), gamemode, biome)
}

// Summary is the public projection of a lobby served by the HTTP layer.
type Summary struct {
	Name          string         `json:"name"`
	PartyCode     string         `json:"partyCode"`
	Trusted       string         `json:"trusted"`
	IsModded      bool           `json:"isModded"`
	IsPrivate     bool           `json:"isPrivate"`
	Gamemode      string         `json:"gamemode"`
	Biome         int            `json:"biome"`
	DirectConnect *DirectConnect `json:"directConnect"`
}

// Summary returns a consistent snapshot of the lobby's public configuration.
func (l *Lobby) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Summary{
		Name:          l.Name,
		PartyCode:     l.PartyCode,
		Trusted:       l.trusted,
		IsModded:      l.isModded,
		IsPrivate:     l.isPrivate,
		Gamemode:      l.gamemode,
		Biome:         l.biome,
		DirectConnect: l.directConnect,
	}
}

// Resources returns the current owner-set resources value.
func (l *Lobby) Resources() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resources
}

// Private reports whether the lobby is hidden from public listings.
func (l *Lobby) Private() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isPrivate
}

// Gamemode returns the defined gamemode.
func (l *Lobby) Gamemode() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gamemode
}

// Biome returns the defined biome id.
func (l *Lobby) Biome() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.biome
}

// Trusted returns the matched trusted identity name, or "" when untrusted.
func (l *Lobby) Trusted() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trusted
}

// send delivers a frame best-effort: a failed send is logged and the frame is
// dropped for that recipient, never propagated to the relay path.
func (l *Lobby) send(conn Conn, frame []byte) {
	if err := conn.Send(frame); err != nil {
		l.logger.Warnf("dropped frame: %v", err)
	}
}
