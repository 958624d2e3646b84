package eventbus

import "fmt"

const (
	// SubjectPrefix is the canonical prefix for write-path events.
	SubjectPrefix = "fk.v1.writepath"
)

// Domain identifies incoming-request vs outgoing-distributor event domains.
type Domain string

const (
	// DomainRequest carries client mutation requests into the coordinator.
	DomainRequest Domain = "request"
	// DomainDistributor carries committed mutations out to the distributor queue.
	DomainDistributor Domain = "distributor"
)

// RequestSubject returns the canonical subject for an incoming operation request.
func RequestSubject(shardKey, eventType string) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, DomainRequest, sanitizeSegment(shardKey), sanitizeSegment(eventType))
}

// DistributorSubject returns the canonical subject for a committed mutation event.
func DistributorSubject(shardKey, eventType string) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, DomainDistributor, sanitizeSegment(shardKey), sanitizeSegment(eventType))
}

// DomainWildcardSubject returns canonical wildcard subject for a domain.
func DomainWildcardSubject(domain Domain) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, sanitizeSegment(string(domain)))
}

func sanitizeSegment(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
