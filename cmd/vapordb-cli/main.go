// cmd/vapordb-cli is VaporDB's CLI entry-point, built with Cobra. It talks
// to a running vapordb-server over HTTP via internal/client.
//
// Usage:
//
//	vapordb-cli set mykey "hello world"        --server http://localhost:8080
//	vapordb-cli get mykey                      --server http://localhost:8080
//	vapordb-cli set-expiring mykey v --ttl 30   --server http://localhost:8080
//	vapordb-cli hset user:1 name ada
//	vapordb-cli lrange mylist 0 10
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tejxsmore/vapordb-go/internal/client"
)

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "vapordb-cli",
		Short: "CLI client for VaporDB",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "VaporDB server address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(
		setCmd(), getCmd(), delCmd(), setExpiringCmd(),
		hsetCmd(), hgetCmd(), hdelCmd(),
		lpushCmd(), rpushCmd(), lpopCmd(), rpopCmd(), lrangeCmd(),
		saddCmd(), sremCmd(), smembersCmd(),
		startCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() *client.Client { return client.New(serverAddr, timeout) }

// ─── string ───────────────────────────────────────────────────────────────────

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a string value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().Set(context.Background(), args[0], args[1])
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newClient().Get(context.Background(), args[0])
			if err == client.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Del(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %q\n", args[0])
			return nil
		},
	}
}

func setExpiringCmd() *cobra.Command {
	var ttlSeconds int64
	cmd := &cobra.Command{
		Use:   "set-expiring <key> <value>",
		Short: "Store a string value with a time-to-live",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().SetWithExpiration(context.Background(), args[0], args[1],
				time.Duration(ttlSeconds)*time.Second)
		},
	}
	cmd.Flags().Int64Var(&ttlSeconds, "ttl", 60, "Time-to-live in seconds")
	return cmd
}

// ─── hash ─────────────────────────────────────────────────────────────────────

func hsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hset <key> <field> <value>",
		Short: "Set a field in a hash",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().HSet(context.Background(), args[0], args[1], args[2])
		},
	}
}

func hgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hget <key> <field>",
		Short: "Get a field from a hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newClient().HGet(context.Background(), args[0], args[1])
			if err == client.ErrNotFound {
				fmt.Println("(nil)")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func hdelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hdel <key> <field>",
		Short: "Remove a field from a hash",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().HDel(context.Background(), args[0], args[1])
		},
	}
}

// ─── list ─────────────────────────────────────────────────────────────────────

func lpushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lpush <key> <value>",
		Short: "Prepend a value to a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().LPush(context.Background(), args[0], args[1])
		},
	}
}

func rpushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rpush <key> <value>",
		Short: "Append a value to a list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().RPush(context.Background(), args[0], args[1])
		},
	}
}

func lpopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lpop <key>",
		Short: "Remove and print the first element of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newClient().LPop(context.Background(), args[0])
			if err == client.ErrNotFound {
				fmt.Println("(nil)")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func rpopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rpop <key>",
		Short: "Remove and print the last element of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newClient().RPop(context.Background(), args[0])
			if err == client.ErrNotFound {
				fmt.Println("(nil)")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
}

func lrangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lrange <key> <start> <end>",
		Short: "Print a range of list elements",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid start index %q: %w", args[1], err)
			}
			end, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid end index %q: %w", args[2], err)
			}
			out, err := newClient().LRange(context.Background(), args[0], uint(start), uint(end))
			if err != nil {
				return err
			}
			for _, v := range out {
				fmt.Println(v)
			}
			return nil
		},
	}
}

// ─── set ──────────────────────────────────────────────────────────────────────

func saddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sadd <key> <member>",
		Short: "Add a member to a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().SAdd(context.Background(), args[0], args[1])
		},
	}
}

func sremCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "srem <key> <member>",
		Short: "Remove a member from a set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().SRem(context.Background(), args[0], args[1])
		},
	}
}

func smembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smembers <key>",
		Short: "Print every member of a set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newClient().SMembers(context.Background(), args[0])
			if err != nil {
				return err
			}
			for _, v := range out {
				fmt.Println(v)
			}
			return nil
		},
	}
}

// ─── misc ─────────────────────────────────────────────────────────────────────

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Check that the configured server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().Health(context.Background()); err != nil {
				return err
			}
			fmt.Printf("vapordb server at %s is reachable\n", serverAddr)
			return nil
		},
	}
}
