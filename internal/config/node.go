package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. MESH_LISTEN.
const EnvPrefix = "MESH"

// IDPrefix starts every generated peer id.
const IDPrefix = "P2P_USER_"

// Node is the per-profile node.toml.
type Node struct {
	PeerID           string            `toml:"peer_id" envconfig:"PEER_ID" validate:"required,peerid"`
	Listen           string            `toml:"listen" envconfig:"LISTEN" validate:"required,listenaddr"`
	Transport        string            `toml:"transport" envconfig:"TRANSPORT" validate:"oneof=tcp quic"`
	DialTimeout      time.Duration     `toml:"dial_timeout" envconfig:"DIAL_TIMEOUT" validate:"gt=0"`
	HandshakeTimeout time.Duration     `toml:"handshake_timeout" envconfig:"HANDSHAKE_TIMEOUT" validate:"gt=0"`
	QueueSize        int               `toml:"queue_size" envconfig:"QUEUE_SIZE" validate:"min=1,max=65536"`
	LogLevel         string            `toml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Relay            Relay             `toml:"relay" envconfig:"RELAY"`
	Addresses        map[string]string `toml:"addresses" envconfig:"ADDRESSES" validate:"dive,keys,required,endkeys,listenaddr"`
}

// Relay tunes duplicate suppression.
type Relay struct {
	Dedup   bool          `toml:"dedup" envconfig:"DEDUP"`
	SeenTTL time.Duration `toml:"seen_ttl" envconfig:"SEEN_TTL" validate:"gte=0"`
	SeenMax int           `toml:"seen_max" envconfig:"SEEN_MAX" validate:"gte=0"`
}

// DefaultNode returns a node config with every default applied and no peer id.
func DefaultNode() Node {
	return Node{
		Listen:           "0.0.0.0:7420",
		Transport:        "tcp",
		DialTimeout:      5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		QueueSize:        64,
		LogLevel:         "info",
		Relay: Relay{
			Dedup:   true,
			SeenTTL: 10 * time.Minute,
			SeenMax: 4096,
		},
		Addresses: map[string]string{},
	}
}

// NewPeerID allocates a fresh peer id such as P2P_USER_3F9A.
func NewPeerID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return IDPrefix + strings.ToUpper(id[:4])
}

var (
	validate     = newValidator()
	peerIDRegexp = regexp.MustCompile(`^[A-Z0-9_.-]{1,64}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("listenaddr", func(fl validator.FieldLevel) bool {
		_, port, err := net.SplitHostPort(fl.Field().String())
		if err != nil {
			return false
		}
		n, err := strconv.Atoi(port)
		return err == nil && n >= 0 && n <= 65535
	})
	_ = v.RegisterValidation("peerid", func(fl validator.FieldLevel) bool {
		return peerIDRegexp.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("profilename", func(fl validator.FieldLevel) bool {
		return profileNameRegexp.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks n against its constraints.
func (n *Node) Validate() error {
	if err := validate.Struct(n); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid node config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid node config: %w", err)
	}
	return nil
}

// LoadNode reads node.toml at path on top of the defaults, applies the
// optional dotenv file and MESH_* environment overrides, and validates the
// result. A missing node.toml is not an error: the defaults are used and
// created reports true so the caller can persist a generated peer id.
func LoadNode(path, envFile string) (cfg Node, created bool, err error) {
	cfg = DefaultNode()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Node{}, false, fmt.Errorf("read %s: %w", path, err)
		}
		created = true
	}

	if envFile != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Node{}, false, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Node{}, false, fmt.Errorf("environment: %w", err)
	}

	if cfg.PeerID == "" {
		cfg.PeerID = NewPeerID()
		created = true
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Node{}, false, err
	}
	return cfg, created, nil
}

// SaveNode writes node.toml.
func SaveNode(path string, cfg Node) error {
	return writeTOML(path, cfg)
}

// normalize upper-cases peer ids so they compare like roster entries.
func (n *Node) normalize() {
	n.PeerID = strings.ToUpper(strings.TrimSpace(n.PeerID))
	n.Transport = strings.ToLower(strings.TrimSpace(n.Transport))
	n.LogLevel = strings.ToLower(strings.TrimSpace(n.LogLevel))
	// An unset handshake_timeout falls back to dial_timeout.
	if n.HandshakeTimeout <= 0 {
		n.HandshakeTimeout = n.DialTimeout
	}
	addrs := make(map[string]string, len(n.Addresses))
	for id, addr := range n.Addresses {
		addrs[strings.ToUpper(strings.TrimSpace(id))] = strings.TrimSpace(addr)
	}
	n.Addresses = addrs
}
