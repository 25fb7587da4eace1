// Package metrics writes marker and upload activity points to InfluxDB.
// When the InfluxDB client cannot be initialized, points are appended to a
// gzipped line-protocol backup file instead of being dropped.
package metrics

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"github.com/puntomapa/puntomapa/internal/config"
)

// Bucket names used by the marker service.
const (
	BucketMarkerActivity    = "marker_activity"
	BucketUploadPerformance = "upload_performance"
)

// DefaultBucketNames are the InfluxDB buckets written by this service.
var DefaultBucketNames = []string{
	BucketMarkerActivity,
	BucketUploadPerformance,
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Cfg          config.InfluxConfig
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Cfg:         cfg,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB, falling back to the gzip
// backup file when the server is unreachable.
func (m *Manager) Connect() error {
	if !m.Cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.Cfg.Protocol, m.Cfg.Host, m.Cfg.Port),
		m.Cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(context.Background())
	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(m.Cfg.Org, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
	}
	return nil
}

// RecordMarkerActivity records a marker lifecycle action.
func (m *Manager) RecordMarkerActivity(ctx context.Context, action string, category string) {
	point := influxdb2_write.NewPointWithMeasurement("marker_lifecycle").
		AddTag("action", action).
		AddField("count", 1).
		SetTime(time.Now())
	if category != "" {
		point.AddTag("category", category)
	}

	if err := m.WritePoint(ctx, BucketMarkerActivity, point); err != nil {
		m.Logger.Error().Err(err).Str("action", action).Msg("Error recording marker activity")
	}
}

// RecordUpload records the outcome and duration of a media upload.
func (m *Manager) RecordUpload(ctx context.Context, kind string, ok bool, took time.Duration) {
	point := influxdb2_write.NewPointWithMeasurement("media_upload").
		AddTag("kind", kind).
		AddTag("ok", fmt.Sprintf("%t", ok)).
		AddField("duration_ms", took.Milliseconds()).
		SetTime(time.Now())

	if err := m.WritePoint(ctx, BucketUploadPerformance, point); err != nil {
		m.Logger.Error().Err(err).Str("kind", kind).Msg("Error recording upload metric")
	}
}

// Close flushes writers and closes the client or backup writer.
func (m *Manager) Close() {
	if m.IsValid {
		for _, w := range m.Writers {
			w.Flush()
		}
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		m.BackupWriter.Close()
	}
}
