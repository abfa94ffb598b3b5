// storectl operates on the upload store outside the server process:
// listing catalog records and purging stored files for a clean slate in
// dev and test environments.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	gcs "cloud.google.com/go/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/urfave/cli/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "storectl",
		Usage: "Operate on the upload catalog and stored files",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Print all upload records",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: listUploads,
			},
			{
				Name:  "purge",
				Usage: "Delete all upload records and stored files (local dir, S3 and GCS buckets)",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "upload-dir",
						Usage:   "Local upload directory to clear",
						EnvVars: []string{"STORAGE_LOCAL_DIR"},
					},
					&cli.StringFlag{
						Name:    "s3-endpoint",
						EnvVars: []string{"S3_ENDPOINT"},
					},
					&cli.StringFlag{
						Name:    "s3-access-key",
						EnvVars: []string{"S3_ACCESS_KEY"},
					},
					&cli.StringFlag{
						Name:    "s3-secret-key",
						EnvVars: []string{"S3_SECRET_KEY"},
					},
					&cli.StringFlag{
						Name:    "s3-bucket",
						Usage:   "S3 bucket whose raw/ prefix is cleared",
						EnvVars: []string{"S3_BUCKET_NAME"},
					},
					&cli.BoolFlag{
						Name:    "s3-use-ssl",
						EnvVars: []string{"S3_USE_SSL"},
					},
					&cli.StringFlag{
						Name:    "gcs-bucket",
						Usage:   "GCS bucket whose raw/ prefix is cleared",
						EnvVars: []string{"GCS_BUCKET_NAME"},
					},
					&cli.StringFlag{
						Name:    "gcs-credentials-file",
						EnvVars: []string{"GCS_CREDENTIALS_FILE"},
					},
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm the purge; without it nothing is deleted",
					},
				},
				Action: purge,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB(c *cli.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func listUploads(c *cli.Context) error {
	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.QueryContext(c.Context, `
		SELECT file_id, region_id, file_name, size_bytes, storage_backend, storage_path, created_at
		FROM uploads ORDER BY created_at DESC`)
	if err != nil {
		return fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			fileID, regionID, fileName, backend, path, createdAt string
			sizeBytes                                            int64
		)
		if err := rows.Scan(&fileID, &regionID, &fileName, &sizeBytes, &backend, &path, &createdAt); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		fmt.Printf("%s  region=%s  %s  %d bytes  [%s] %s  %s\n",
			fileID, regionID, fileName, sizeBytes, backend, path, createdAt)
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	fmt.Printf("%d upload(s)\n", count)
	return nil
}

func purge(c *cli.Context) error {
	if !c.Bool("yes") {
		return fmt.Errorf("refusing to purge without --yes")
	}

	db, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.ExecContext(c.Context, `DELETE FROM uploads`)
	if err != nil {
		return fmt.Errorf("failed to clear uploads table: %w", err)
	}
	deleted, _ := res.RowsAffected()
	log.Printf("cleared %d catalog record(s)", deleted)

	if dir := c.String("upload-dir"); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clear upload dir %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to recreate upload dir %s: %w", dir, err)
		}
		log.Printf("cleared local upload dir %s", dir)
	}

	if bucket := c.String("s3-bucket"); bucket != "" {
		if err := purgeBucket(c.Context, c, bucket); err != nil {
			return err
		}
	}

	if bucket := c.String("gcs-bucket"); bucket != "" {
		client, err := newGCSClient(c.Context, c.String("gcs-credentials-file"))
		if err != nil {
			return err
		}
		defer client.Close()
		if err := purgeGCSBucket(c.Context, client, bucket); err != nil {
			return err
		}
	}

	return nil
}

func newGCSClient(ctx context.Context, credentialsFile string) (*gcs.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return client, nil
}

func purgeGCSBucket(ctx context.Context, client *gcs.Client, bucket string) error {
	it := client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: "raw/"})
	removed := 0
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to list bucket %s: %w", bucket, err)
		}
		if err := client.Bucket(bucket).Object(attrs.Name).Delete(ctx); err != nil {
			return fmt.Errorf("failed to remove %s: %w", attrs.Name, err)
		}
		removed++
	}
	log.Printf("removed %d object(s) from bucket %s", removed, bucket)
	return nil
}

func purgeBucket(ctx context.Context, c *cli.Context, bucket string) error {
	client, err := minio.New(c.String("s3-endpoint"), &minio.Options{
		Creds:  credentials.NewStaticV4(c.String("s3-access-key"), c.String("s3-secret-key"), ""),
		Secure: c.Bool("s3-use-ssl"),
	})
	if err != nil {
		return fmt.Errorf("failed to create s3 client: %w", err)
	}

	removed := 0
	for object := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    "raw/",
		Recursive: true,
	}) {
		if object.Err != nil {
			return fmt.Errorf("failed to list bucket %s: %w", bucket, object.Err)
		}
		if err := client.RemoveObject(ctx, bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", object.Key, err)
		}
		removed++
	}
	log.Printf("removed %d object(s) from bucket %s", removed, bucket)
	return nil
}
