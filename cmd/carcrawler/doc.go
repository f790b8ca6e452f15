// Package main hosts the car listing crawler entrypoint.
//
// One invocation performs exactly one crawl cycle and exits:
//   - Discovery: internal/discover walks the paginated search results (page/size query parameters) one page at a
//     time and stops at the first page with no listing items.
//   - Harvest: internal/harvest fetches every detail page concurrently over one shared Colly transport and extracts a
//     record with goquery. A page that fails to fetch or parse is logged and dropped; the rest of the batch continues.
//   - Persistence: records are bulk-copied into Postgres, then the whole table is rendered as one INSERT statement,
//     written to dump_<timestamp>.sql under the output directory (plus GCS when configured) and cleared in the same
//     transaction.
//   - Notifications & metrics: a Pub/Sub message announces the dump when a topic is configured; Prometheus counters
//     are pushed to a Pushgateway at exit when a URL is configured.
//
// Quick checklist:
//   - Configure env vars (a .env file in the working directory is loaded first): CRAWLER_DB_* or the legacy
//     POSTGRESS_DATABASE/USER/PASSWORD/HOST/PORT, CRAWLER_SITE_BASE_URL or URL, CRAWLER_OUTPUT_DIR or DATA.
//   - Optional file config: CRAWLER_CONFIG_FILE=config.yaml.
//   - Run locally: go run ./cmd/carcrawler. Exit code 1 means the run failed before the dump was committed.
package main
