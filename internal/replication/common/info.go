package common

import (
	"fmt"
	"strings"
)

// DSInfo describes a directory server as advertised in topology messages.
type DSInfo struct {
	DSID         int32
	URL          string
	RSID         int32
	GenerationID int64
	Status       ServerStatus
	Assured      bool
	AssuredMode  AssuredMode
	// SafeDataLevel is the number of replication servers that must hold an
	// update before a safe-data ack is sent.
	SafeDataLevel int8
	GroupID       int8
	RefURLs       []string

	ECLIncludes           []string
	ECLIncludesForDeletes []string
	ProtocolVersion       int16
}

// String returns a single line description for logs.
func (i DSInfo) String() string {
	return fmt.Sprintf("DS id=%d url=%q rs=%d gen=%d status=%s assured=%t mode=%s level=%d group=%d refs=[%s]",
		i.DSID, i.URL, i.RSID, i.GenerationID, i.Status, i.Assured, i.AssuredMode,
		i.SafeDataLevel, i.GroupID, strings.Join(i.RefURLs, ","))
}

// RSInfo describes a replication server as advertised in topology messages.
type RSInfo struct {
	ID           int32
	URL          string
	GenerationID int64
	GroupID      int8
	// Weight is used to balance directory servers across replication
	// servers.
	Weight int32
}

// String returns a single line description for logs.
func (i RSInfo) String() string {
	return fmt.Sprintf("RS id=%d url=%q gen=%d group=%d weight=%d",
		i.ID, i.URL, i.GenerationID, i.GroupID, i.Weight)
}
