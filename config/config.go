/*
Copyright 2025 Tawi Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "4100"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL    bool   `json:"ssl" envconfig:"TAWI_SERVER_SSL"`
	Domain string `json:"domain" envconfig:"TAWI_SERVER_SSL_DOMAIN"`
	Email  string `json:"ssl_email" envconfig:"TAWI_SERVER_SSL_EMAIL"`
	Port   string `json:"port" envconfig:"TAWI_SERVER_PORT"`
}

type PaymentProviderConfig struct {
	BaseUrl   string `json:"base_url" envconfig:"TAWI_PAYMENT_BASE_URL"`
	ApiKey    string `json:"api_key" envconfig:"TAWI_PAYMENT_API_KEY"`
	UserEmail string `json:"user_email" envconfig:"TAWI_PAYMENT_USER_EMAIL"`
	LinkCode  string `json:"link_code" envconfig:"TAWI_PAYMENT_LINK_CODE"`
}

type AirtimeProviderConfig struct {
	BaseUrl string `json:"base_url" envconfig:"TAWI_AIRTIME_BASE_URL"`
	Key     string `json:"key" envconfig:"TAWI_AIRTIME_KEY"`
	Secret  string `json:"secret" envconfig:"TAWI_AIRTIME_SECRET"`
}

type SchedulerConfig struct {
	PollIntervalSec  int `json:"poll_interval_sec" envconfig:"TAWI_POLL_INTERVAL_SEC"`
	MaxPollAttempts  int `json:"max_poll_attempts" envconfig:"TAWI_MAX_POLL_ATTEMPTS"`
	RetryIntervalSec int `json:"retry_interval_sec" envconfig:"TAWI_RETRY_INTERVAL_SEC"`
	RetryLimit       int `json:"retry_limit" envconfig:"TAWI_RETRY_LIMIT"`
	RetentionMin     int `json:"retention_min" envconfig:"TAWI_RETENTION_MIN"`
}

type BusinessConfig struct {
	FeePercent      float64 `json:"fee_percent" envconfig:"TAWI_FEE_PERCENT"`
	BonusPercent    float64 `json:"bonus_percent" envconfig:"TAWI_BONUS_PERCENT"`
	PointsPerUnit   float64 `json:"points_per_unit" envconfig:"TAWI_POINTS_PER_UNIT"`
	RedeemRate      int64   `json:"redeem_rate" envconfig:"TAWI_REDEEM_RATE"`
	PointsPerBundle int64   `json:"points_per_bundle" envconfig:"TAWI_POINTS_PER_BUNDLE"`
}

type SnapshotConfig struct {
	Dir                string `json:"dir" envconfig:"TAWI_SNAPSHOT_DIR"`
	IntervalSec        int    `json:"interval_sec" envconfig:"TAWI_SNAPSHOT_INTERVAL_SEC"`
	S3BucketName       string `json:"s3_bucket_name"`
	S3Region           string `json:"s3_region"`
	AwsAccessKeyId     string `json:"aws_access_key_id"`
	AwsSecretAccessKey string `json:"aws_secret_access_key"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"TAWI_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"TAWI_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"TAWI_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string                `json:"project_name" envconfig:"TAWI_PROJECT_NAME"`
	AuditDir     string                `json:"audit_dir" envconfig:"TAWI_AUDIT_DIR"`
	Server       ServerConfig          `json:"server"`
	Payment      PaymentProviderConfig `json:"payment"`
	Airtime      AirtimeProviderConfig `json:"airtime"`
	Scheduler    SchedulerConfig       `json:"scheduler"`
	Business     BusinessConfig        `json:"business"`
	Snapshot     SnapshotConfig        `json:"snapshot"`
	Notification Notification          `json:"notification"`
	RateLimit    RateLimitConfig       `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("tawi", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called tawi.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Tawi Server"
	}

	if cnf.Payment.ApiKey == "" {
		log.Println("Error: Payment provider API key is empty. It's a required field.")
		return errors.New("payment provider API key is required")
	}

	if cnf.Airtime.Key == "" || cnf.Airtime.Secret == "" {
		log.Println("Error: Airtime provider credentials are empty. They are required fields.")
		return errors.New("airtime provider key and secret are required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Payment.BaseUrl = strings.TrimSpace(cnf.Payment.BaseUrl)
	cnf.Airtime.BaseUrl = strings.TrimSpace(cnf.Airtime.BaseUrl)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Payment.BaseUrl == "" {
		cnf.Payment.BaseUrl = "https://paynecta.co.ke/api/v1"
	}
	if cnf.Airtime.BaseUrl == "" {
		cnf.Airtime.BaseUrl = "https://api.statum.co.ke/api/v2"
	}

	if cnf.AuditDir == "" {
		cnf.AuditDir = "logs"
	}

	cnf.Scheduler.applyDefaults()
	cnf.Business.applyDefaults()

	if cnf.Snapshot.Dir == "" {
		cnf.Snapshot.Dir = "snapshots"
	}
	if cnf.Snapshot.IntervalSec <= 0 {
		cnf.Snapshot.IntervalSec = 300
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (s *SchedulerConfig) applyDefaults() {
	if s.PollIntervalSec <= 0 {
		s.PollIntervalSec = 5
	}
	if s.MaxPollAttempts <= 0 {
		s.MaxPollAttempts = 40
	}
	if s.RetryIntervalSec <= 0 {
		s.RetryIntervalSec = 60
	}
	if s.RetryLimit <= 0 {
		s.RetryLimit = 5
	}
	if s.RetentionMin <= 0 {
		s.RetentionMin = 10
	}
}

func (b *BusinessConfig) applyDefaults() {
	if b.FeePercent <= 0 {
		b.FeePercent = 2.5
	}
	if b.BonusPercent <= 0 {
		b.BonusPercent = 5
	}
	if b.PointsPerUnit <= 0 {
		b.PointsPerUnit = 0.01
	}
	if b.RedeemRate <= 0 {
		b.RedeemRate = 10
	}
	if b.PointsPerBundle <= 0 {
		b.PointsPerBundle = 100
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mockConfig.Scheduler.applyDefaults()
	mockConfig.Business.applyDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
