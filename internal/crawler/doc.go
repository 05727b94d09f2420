// Package crawler implements the breadth-first crawl engine: the level-ordered
// frontier, the fetch/extract pipeline, canonical URL deduplication, spider
// trap detection, and the retry policy shared by both fetcher implementations.
package crawler
