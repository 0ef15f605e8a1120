// judge-cli submits one source file for grading and waits for its
// verdict over the broker's RPC reply path.
//
// Usage:
//
//	RABBITMQ_URL=amqp://... judge-cli -problem 4990 -lang python -file sol.py
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"judgeworker/internal/broker"
	"judgeworker/internal/model"
)

func main() {
	var (
		problemID = flag.Int64("problem", 0, "external problem id")
		lang      = flag.String("lang", "", "language tag (python, cpp, ...)")
		file      = flag.String("file", "", "path to the source file")
		queue     = flag.String("queue", "code_challenge_queue", "job queue name")
		timeout   = flag.Duration("timeout", 60*time.Second, "how long to wait for the verdict")
	)
	flag.Parse()

	if err := run(*problemID, *lang, *file, *queue, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "judge-cli: %v\n", err)
		os.Exit(1)
	}
}

func run(problemID int64, lang, file, queue string, timeout time.Duration) error {
	if problemID <= 0 || lang == "" || file == "" {
		return fmt.Errorf("-problem, -lang and -file are required")
	}
	brokerURL := os.Getenv("RABBITMQ_URL")
	if brokerURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}

	code, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	job := model.Job{
		SubmissionID: uuid.NewString(),
		ProblemID:    problemID,
		Language:     lang,
		Code:         string(code),
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout+10*time.Second)
	defer cancel()

	client, err := broker.New(broker.Config{URL: brokerURL})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.DeclareQueue(queue); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "submitted %s, waiting for verdict...\n", job.SubmissionID)
	reply, err := client.Call(ctx, queue, body, timeout)
	if err != nil {
		return err
	}

	var res model.Result
	if err := json.Unmarshal(reply, &res); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	pretty, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(pretty))
	return nil
}
