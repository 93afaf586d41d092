package kvstore

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/etcd/api/v3/v3rpc/rpctypes"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const DefaultDialTimeout = 5 * time.Second

// Status is the subset of an etcd member status shown to the operator.
type Status struct {
	Endpoint  string
	Version   string
	DbSize    int64
	Leader    uint64
	MemberID  uint64
	RaftIndex uint64
	RaftTerm  uint64
	Errors    []string
}

func (s Status) String() string {
	leader := "follower"
	if s.Leader == s.MemberID {
		leader = "leader"
	}
	return fmt.Sprintf("%s version=%s db_size=%d %s raft_index=%d raft_term=%d",
		s.Endpoint, s.Version, s.DbSize, leader, s.RaftIndex, s.RaftTerm)
}

// Probe asks a single etcd endpoint for its status.
type Probe struct {
	Endpoint    string
	DialTimeout time.Duration
}

func NewProbe(endpoint string) *Probe {
	return &Probe{
		Endpoint:    endpoint,
		DialTimeout: DefaultDialTimeout,
	}
}

func (p *Probe) Status(ctx context.Context) (*Status, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{p.Endpoint},
		DialTimeout: p.DialTimeout,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("clientv3.New(%s) %w", p.Endpoint, err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(ctx, p.DialTimeout)
	defer cancel()

	res, err := cli.Status(ctx, p.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("cli.Status(%s) %s: %w", p.Endpoint, rpctypes.ErrorDesc(err), err)
	}

	return &Status{
		Endpoint:  p.Endpoint,
		Version:   res.Version,
		DbSize:    res.DbSize,
		Leader:    res.Leader,
		MemberID:  res.Header.GetMemberId(),
		RaftIndex: res.RaftIndex,
		RaftTerm:  res.RaftTerm,
		Errors:    res.Errors,
	}, nil
}
