package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/supremacy-go/combat/pkg/core"
)

// PerformanceBucket receives engine and writer timings.
const PerformanceBucket = "combat_performance"

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager. Round metrics go to the bucket
// named by influx.bucket.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: []string{RoundBucket(), PerformanceBucket},
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// RoundBucket returns the configured bucket for per-round metrics.
func RoundBucket() string {
	if b := viper.GetString("influx.bucket"); b != "" {
		return b
	}
	return "combat_rounds"
}

// Connect establishes a connection to InfluxDB. When the server cannot be
// reached, points are written in line protocol to a gzipped backup file.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())
	if err != nil || !running {
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		return m.OpenBackup()
	}

	if err := m.setupOrganizationAndBuckets(); err != nil {
		return err
	}
	m.IsValid = true
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// OpenBackup switches the manager to the backup file.
func (m *Manager) OpenBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IsValid = false
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Strs("buckets", m.BucketNames).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteRound writes the per-faction points of a round summary.
func (m *Manager) WriteRound(s *core.RoundSummary, location core.Location) error {
	var errs []error
	for _, p := range RoundPoints(s, location) {
		errs = append(errs, m.WritePoint(RoundBucket(), p))
	}
	return errors.Join(errs...)
}

// WriteResolve records how long resolving a round took.
func (m *Manager) WriteResolve(combatID, round int, took time.Duration) error {
	return m.WritePoint(PerformanceBucket, ResolvePoint(combatID, round, took))
}

// Close flushes pending writes and closes the client or backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	err := m.BackupWriter.Close()
	if m.backupFile != nil {
		err = errors.Join(err, m.backupFile.Close())
	}
	m.BackupWriter = nil
	return err
}

// RoundPoints builds one "faction_round" point per faction of a summary.
func RoundPoints(s *core.RoundSummary, location core.Location) []*influxdb2_write.Point {
	ts := s.RecordedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	points := make([]*influxdb2_write.Point, 0, len(s.Factions))
	for _, f := range s.Factions {
		p := influxdb2_write.NewPoint(
			"faction_round",
			map[string]string{
				"combat":   strconv.Itoa(s.CombatID),
				"faction":  strconv.Itoa(f.FactionID),
				"location": location.String(),
			},
			map[string]any{
				"round":          s.Round,
				"firepower":      f.Firepower,
				"strength":       f.Strength,
				"combatants":     f.Combatants,
				"non_combatants": f.NonCombatants,
				"escaped":        f.Escaped,
				"destroyed":      f.Destroyed,
				"assimilated":    f.Assimilated,
				"station_alive":  f.StationAlive,
				"standoff":       s.Standoff,
			},
			ts,
		)
		points = append(points, p)
	}
	return points
}

// ResolvePoint records how long a round took to resolve.
func ResolvePoint(combatID, round int, took time.Duration) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"round_resolve",
		map[string]string{"combat": strconv.Itoa(combatID)},
		map[string]any{
			"round":       round,
			"duration_ms": float64(took.Microseconds()) / 1000,
		},
		time.Now(),
	)
}
