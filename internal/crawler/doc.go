// Package crawler holds the domain types and collaborator interfaces shared by
// the discovery, harvest, persistence and archive stages of a listing crawl.
package crawler
