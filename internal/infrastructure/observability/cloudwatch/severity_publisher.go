package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/domain/event"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// SeverityPublisherConfig holds configuration for CloudWatch publishing.
type SeverityPublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "HealthChecker/Fleet")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	DefaultDimensions map[string]string // Default dimensions added to all metrics
	StorageResolution int32             // Storage resolution in seconds (1 or 60)
}

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// SeverityPublisher turns every report into CloudWatch datums: one severity
// level per finding, resource usage for nodes, latency for services and the
// report summary counts. It implements port.NotificationChannel.
type SeverityPublisher struct {
	client            putMetricDataAPI
	namespace         string
	defaultDimensions map[string]string
	storageResolution int32
	backoff           time.Duration
}

// NewSeverityPublisher creates a new CloudWatch publisher.
func NewSeverityPublisher(ctx context.Context, cfg SeverityPublisherConfig) (*SeverityPublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	return newSeverityPublisher(cloudwatch.NewFromConfig(awsCfg), cfg), nil
}

func newSeverityPublisher(client putMetricDataAPI, cfg SeverityPublisherConfig) *SeverityPublisher {
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60 // Default to standard resolution
	}

	return &SeverityPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		storageResolution: cfg.StorageResolution,
		backoff:           initialBackoff,
	}
}

func (p *SeverityPublisher) Name() string {
	return "cloudwatch"
}

// Deliver publishes the datums of one report, chunked to the request limit.
func (p *SeverityPublisher) Deliver(ctx context.Context, report *dto.ReportDTO) error {
	data := p.convertReport(report)

	for i := 0; i < len(data); i += maxMetricsPerRequest {
		end := i + maxMetricsPerRequest
		if end > len(data) {
			end = len(data)
		}

		if err := p.publishBatchWithRetry(ctx, data[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	return nil
}

// publishBatchWithRetry publishes a batch of metrics with exponential backoff retry.
func (p *SeverityPublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := p.backoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		})
		if err == nil {
			return nil
		}

		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *SeverityPublisher) convertReport(report *dto.ReportDTO) []types.MetricDatum {
	at := report.UpdateTime
	data := make([]types.MetricDatum, 0, 3*len(report.Events)+3)

	for _, f := range report.Events {
		dims := p.dimensions(
			"TargetKind", string(f.Kind),
			"TargetID", f.ID,
		)

		data = append(data, p.datum("Severity", float64(f.Severity), types.StandardUnitNone, at, dims))

		switch f.Kind {
		case event.TargetNode:
			if f.Node != nil {
				data = append(data,
					p.datum("DiskUsage", f.Node.DiskPer, types.StandardUnitPercent, at, dims),
					p.datum("MemoryUsage", f.Node.MemStatusPer, types.StandardUnitPercent, at, dims),
				)
			}
		case event.TargetService:
			if f.Service != nil {
				data = append(data, p.datum("Latency", float64(f.Service.LatencyMS), types.StandardUnitMilliseconds, at, dims))
			}
		}
	}

	summary := p.dimensions()
	data = append(data,
		p.datum("RedFindings", float64(report.Summary.RedCount), types.StandardUnitCount, at, summary),
		p.datum("YellowFindings", float64(report.Summary.YellowCount), types.StandardUnitCount, at, summary),
		p.datum("GreenFindings", float64(report.Summary.GreenCount), types.StandardUnitCount, at, summary),
	)

	return data
}

func (p *SeverityPublisher) datum(name string, value float64, unit types.StandardUnit, at time.Time, dims []types.Dimension) types.MetricDatum {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(at),
		Dimensions: dims,
	}

	if p.storageResolution > 0 {
		datum.StorageResolution = aws.Int32(p.storageResolution)
	}

	return datum
}

// dimensions merges the default dimensions with name/value pairs.
func (p *SeverityPublisher) dimensions(pairs ...string) []types.Dimension {
	dims := make([]types.Dimension, 0, len(p.defaultDimensions)+len(pairs)/2)

	for key, value := range p.defaultDimensions {
		dims = append(dims, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(value),
		})
	}

	for i := 0; i+1 < len(pairs); i += 2 {
		dims = append(dims, types.Dimension{
			Name:  aws.String(pairs[i]),
			Value: aws.String(pairs[i+1]),
		})
	}

	return dims
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	// Add static credentials if provided
	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override endpoint if specified (for LocalStack testing)
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
