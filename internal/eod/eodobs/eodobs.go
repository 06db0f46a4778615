package eodobs

import (
	"context"
	"time"

	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/logger"
	"quick-flip-scalper/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeDay")
	defer span.End()

	date := t.Format("2006-01-02")
	csvPath, err := oes.summarizer.SummarizeDay(t)
	if err != nil {
		logger.ErrorWithErr(ctx, "EOD summary generation failed", err, "date", date)
		return "", err
	}
	if csvPath == "" {
		logger.Info(ctx, "No closed trades for EOD summary", "date", date)
		return "", nil
	}

	logger.Info(ctx, "EOD summary generated", "date", date, "csv_path", csvPath)
	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeToday() (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeToday")
	defer span.End()

	csvPath, err := oes.summarizer.SummarizeToday()
	if err != nil {
		logger.ErrorWithErr(ctx, "Today's EOD summary generation failed", err)
		return "", err
	}
	logger.Info(ctx, "Today's EOD summary finished", "csv_path", csvPath)
	return csvPath, nil
}

func (oes *observableEodSummarizer) ShouldRunNow() (bool, string) {
	ctx, span := trace.StartSpan(context.Background(), "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := oes.summarizer.ShouldRunNow()
	logger.Debug(ctx, "EOD check completed", "should_run", shouldRun, "csv_path", csvPath)
	return shouldRun, csvPath
}
