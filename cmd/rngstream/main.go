// Command rngstream writes raw generator output to stdout, for piping into
// statistical test suites such as PractRand (RNG_test stdin64) or dieharder.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"syscall"

	"github.com/mattn/go-isatty"
)

const chunkSize = 64 << 10

func main() {
	log.SetFlags(0)
	log.SetPrefix("rngstream: ")

	if err := run(os.Args[1:], os.Stdout, stdoutIsTerminal()); err != nil {
		log.Fatal(err)
	}
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func run(args []string, out io.Writer, tty bool) error {
	fs := flag.NewFlagSet("rngstream", flag.ContinueOnError)
	var (
		jobFile = fs.String("job", "", "TOML job file; flags override its values")
		force   = fs.Bool("force", false, "write to a terminal anyway")
		flags   Job
		seed    uint64
	)
	fs.StringVar(&flags.Engine, "engine", "nasam1024", "engine: nasam1024 or csprng")
	fs.Uint64Var(&seed, "seed", 0, "64-bit seed (nasam1024)")
	fs.StringVar(&flags.Key, "key", "", "hex key (csprng)")
	fs.StringVar(&flags.Nonce, "nonce", "", "hex nonce (csprng)")
	fs.Uint64Var(&flags.Counter, "counter", 0, "starting block counter (csprng)")
	fs.Uint64Var(&flags.Discard, "discard", 0, "outputs to skip before writing")
	fs.IntVar(&flags.Jumps, "jumps", 0, "jumps to apply before writing")
	fs.IntVar(&flags.LongJumps, "long-jumps", 0, "long jumps to apply before writing")
	fs.Int64Var(&flags.Bytes, "bytes", 0, "bytes to write; 0 means until the reader closes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	job := Job{Engine: flags.Engine}
	if *jobFile != "" {
		var err error
		if job, err = loadJob(*jobFile); err != nil {
			return err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "engine":
			job.Engine = flags.Engine
		case "seed":
			job.Seed = &seed
		case "key":
			job.Key = flags.Key
		case "nonce":
			job.Nonce = flags.Nonce
		case "counter":
			job.Counter = flags.Counter
		case "discard":
			job.Discard = flags.Discard
		case "jumps":
			job.Jumps = flags.Jumps
		case "long-jumps":
			job.LongJumps = flags.LongJumps
		case "bytes":
			job.Bytes = flags.Bytes
		}
	})
	if job.Bytes < 0 {
		return fmt.Errorf("bytes must not be negative")
	}
	if tty && !*force {
		return errors.New("refusing to write binary output to a terminal; pipe it somewhere or pass -force")
	}

	e, err := job.engine()
	if err != nil {
		return err
	}
	if c, ok := e.(io.Closer); ok {
		defer c.Close()
	}
	return stream(e, out, job.Bytes)
}

// stream copies limit bytes (or everything, for limit 0) from r to w. A
// closed pipe on the reading side ends an unlimited stream cleanly. Bytes
// read before a reader error are still written.
func stream(r io.Reader, w io.Writer, limit int64) error {
	buf := make([]byte, chunkSize)
	for written := int64(0); limit == 0 || written < limit; {
		n := len(buf)
		if limit > 0 && limit-written < int64(n) {
			n = int(limit - written)
		}
		n, rerr := r.Read(buf[:n])
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				if errors.Is(err, syscall.EPIPE) {
					return nil
				}
				return err
			}
			written += int64(n)
		}
		if rerr != nil {
			return rerr
		}
	}
	return nil
}
