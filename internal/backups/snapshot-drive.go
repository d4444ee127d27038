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

// Package backups implements the snapshot persistence port: a periodic
// full-state JSON dump to disk, load-on-start from the latest dump, and an
// optional zip-and-upload of a day's dumps to S3. Best effort, not
// transactional: mutations between dumps are lost on a crash.
package backups

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/model"
)

const latestFile = "latest.json"

// WriteSnapshot serializes the snapshot into the configured snapshot
// directory. Two copies are written: a timestamped dump under a per-day
// subdirectory, and latest.json at the directory root (written atomically
// via rename) which LoadLatest reads on start.
func WriteSnapshot(snap *model.Snapshot) (string, error) {
	conf, err := config.Fetch()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}

	today := snap.TakenAt.Format("2006-01-02")
	dayDir := filepath.Join(conf.Snapshot.Dir, today)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("tawi-%s-snapshot.json", snap.TakenAt.Format("150405"))
	dumpPath := filepath.Join(dayDir, name)
	if err := os.WriteFile(dumpPath, data, 0o644); err != nil {
		return "", err
	}

	tmp := filepath.Join(conf.Snapshot.Dir, latestFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, filepath.Join(conf.Snapshot.Dir, latestFile)); err != nil {
		return "", err
	}

	return dumpPath, nil
}

// LoadLatest reads the most recent snapshot. A missing file is not an
// error: it returns (nil, nil) so a fresh install starts empty.
func LoadLatest() (*model.Snapshot, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(conf.Snapshot.Dir, latestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ZipUploadToS3 zips today's snapshot directory and uploads the archive to
// the configured S3 bucket, retrying the upload with exponential backoff.
func ZipUploadToS3() error {
	cnf, err := config.Fetch()
	if err != nil {
		return err
	}
	if cnf.Snapshot.S3BucketName == "" {
		return errors.New("snapshot S3 bucket is not configured")
	}

	today := time.Now().Format("2006-01-02")
	dirToZip := filepath.Join(cnf.Snapshot.Dir, today)
	zipFile := fmt.Sprintf("tawi-snapshots-%s.zip", today)

	if err := zipDir(dirToZip, zipFile); err != nil {
		return err
	}

	upload := func() error {
		return uploadToS3(zipFile, cnf.Snapshot.S3BucketName, zipFile, cnf.Snapshot.AwsAccessKeyId, cnf.Snapshot.AwsSecretAccessKey, cnf.Snapshot.S3Region)
	}
	if err := backoff.Retry(upload, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)); err != nil {
		return err
	}

	if err := os.Remove(zipFile); err != nil {
		return err
	}

	fmt.Println("Snapshots for", today, "zipped and uploaded to S3.")
	return nil
}

func zipDir(srcDir, destZip string) error {
	zipFile, err := os.Create(destZip)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	writer := zip.NewWriter(zipFile)
	defer writer.Close()

	return filepath.Walk(srcDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		relPath := filePath[len(srcDir)+1:]
		zipFileWriter, err := writer.Create(relPath)
		if err != nil {
			return err
		}

		srcFile, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer srcFile.Close()

		_, err = io.Copy(zipFileWriter, srcFile)
		return err
	})
}

func uploadToS3(filePath, bucketName, itemKey, accessKeyID, secretAccessKey, region string) error {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return err
	}

	client := s3.NewFromConfig(cfg)

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(itemKey),
		Body:   file,
	})

	return err
}
