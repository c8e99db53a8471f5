package services

import (
	"context"
	"io"
	"log"
	"os"

	"x2tsvc/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type S3Service struct {
	client *s3.S3
}

func NewS3Service(cfg *config.Config) *S3Service {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.S3Region),
		// A transfer either succeeds or fails the whole request; the SDK
		// must not retry behind our back.
		MaxRetries: aws.Int(0),
	}

	if cfg.AWSS3AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			cfg.AWSS3AccessKey,
			cfg.AWSS3SecretKey,
			"",
		)
	}

	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
	}

	if cfg.S3UsePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess := session.Must(session.NewSession(awsCfg))

	return &S3Service{client: s3.New(sess)}
}

// Download streams the named object to destPath chunk by chunk. A missing
// object is surfaced as NO_SUCH_KEY; every other failure mid-stream is
// terminal for the request, and a partially written file is acceptable
// because the workspace is deleted afterward regardless.
func (s *S3Service) Download(ctx context.Context, bucket, key, destPath string) *ConvertError {
	resp, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("[S3] error streaming source file: %v", err)

		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return newConvertError(ReasonNoSuchKey, "key not found in source bucket")
		}

		return newConvertError(ReasonGetObject, err.Error())
	}
	defer resp.Body.Close()

	file, err := os.Create(destPath)
	if err != nil {
		log.Printf("[S3] failed to create source file: %v", err)
		return newConvertError(ReasonGetObject, err.Error())
	}
	defer file.Close()

	buf := make([]byte, 64*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				log.Printf("[S3] failed to write object chunk: %v", writeErr)
				return newConvertError(ReasonWriteObjectChunk, "failed to write chunk")
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			log.Printf("[S3] failed to read object chunk: %v", readErr)
			return newConvertError(ReasonReadObjectChunk, "failed to read chunk")
		}
	}

	if err := file.Sync(); err != nil {
		log.Printf("[S3] failed to flush object: %v", err)
		return newConvertError(ReasonFlushObject, "failed to flush object")
	}

	return nil
}

// Upload streams the local file to the named object as application/pdf.
func (s *S3Service) Upload(ctx context.Context, localPath, bucket, key string) *ConvertError {
	file, err := os.Open(localPath)
	if err != nil {
		log.Printf("[S3] failed to create output stream: %v", err)
		return newConvertError(ReasonCreateOutputStream, "failed to create output stream")
	}
	defer file.Close()

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		log.Printf("[S3] failed to upload output: %v", err)
		return newConvertError(ReasonUploadOutputStream, "failed to upload output stream")
	}

	return nil
}
