package callrisk

import (
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"callguard/internal/domain/models"
	"callguard/internal/domain/services"
	"callguard/pkg/logger"
)

// Server implements RiskScoringServer on top of CallAnalysisService
type Server struct {
	service *services.CallAnalysisService
	logger  *logger.Logger
}

// NewServer creates a new gRPC server
func NewServer(svc *services.CallAnalysisService, log *logger.Logger) *Server {
	return &Server{
		service: svc,
		logger:  log.WithComponent("grpc-server"),
	}
}

// Register registers the server with a gRPC server
func (s *Server) Register(grpcServer *grpc.Server) {
	RegisterRiskScoringServer(grpcServer, s)
}

// Analyze scores the transcript in req. Fields: text (string, required),
// duration_seconds (number), language (string).
func (s *Server) Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	analyzeReq, err := parseRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome := s.service.Analyze(ctx, analyzeReq)

	resp, err := outcomeStruct(outcome)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode outcome")
		return nil, status.Error(codes.Internal, "failed to encode outcome")
	}
	return resp, nil
}

func parseRequest(req *structpb.Struct) (services.AnalyzeRequest, error) {
	fields := req.GetFields()

	textValue, ok := fields["text"]
	if !ok {
		return services.AnalyzeRequest{}, fmt.Errorf("text is required")
	}
	text, ok := textValue.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return services.AnalyzeRequest{}, fmt.Errorf("text must be a string")
	}

	out := services.AnalyzeRequest{Text: text.StringValue}

	if v, ok := fields["duration_seconds"]; ok {
		d, isNum := v.GetKind().(*structpb.Value_NumberValue)
		if !isNum {
			return services.AnalyzeRequest{}, fmt.Errorf("duration_seconds must be a number")
		}
		if d.NumberValue < 0 || math.IsNaN(d.NumberValue) {
			return services.AnalyzeRequest{}, fmt.Errorf("duration_seconds must not be negative")
		}
		out.DurationSeconds = d.NumberValue
	}

	if v, ok := fields["language"]; ok {
		lang, isStr := v.GetKind().(*structpb.Value_StringValue)
		if !isStr {
			return services.AnalyzeRequest{}, fmt.Errorf("language must be a string")
		}
		out.Language = lang.StringValue
	}

	return out, nil
}

func outcomeStruct(o *models.AnalysisOutcome) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":               o.ID.String(),
		"transcript":       o.Transcript,
		"language":         o.Language,
		"intent_prob":      o.Intent.IntentProb,
		"matched_keywords": stringList(o.Intent.MatchedKeywords),
		"keyword_score":    o.Intent.KeywordScore,
		"reasons":          stringList(o.Intent.Reasons),
		"behavior": map[string]any{
			"word_count":       o.Behavior.WordCount,
			"duration":         o.Behavior.DurationSeconds,
			"words_per_second": o.Behavior.WordsPerSecond,
			"urgency_count":    o.Behavior.UrgencyCount,
			"threat_count":     o.Behavior.ThreatCount,
			"repetition_ratio": o.Behavior.RepetitionRatio,
			"behavior_score":   o.Behavior.BehaviorScore,
		},
		"risk": map[string]any{
			"risk_score": o.Risk.RiskScore,
			"alert":      o.Risk.Alert,
			"level":      string(o.Risk.Level()),
		},
		"cached":      o.Cached,
		"analyzed_at": o.AnalyzedAt.Format(time.RFC3339Nano),
	})
}

func stringList(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
