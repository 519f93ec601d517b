package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"CompetitionScanner/internal/domain"
	"CompetitionScanner/internal/ports"
	"CompetitionScanner/internal/textutil"
)

const (
	labelMaxTokens     = 500
	duplicateMaxTokens = 800
	sampleDescRunes    = 100
)

// Classifier labels competitions and judges duplicates through a Completer.
type Classifier struct {
	llm    Completer
	logger *slog.Logger
}

var (
	_ ports.Labeler        = (*Classifier)(nil)
	_ ports.DuplicateJudge = (*Classifier)(nil)
)

// NewClassifier wraps llm.
func NewClassifier(llm Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{llm: llm, logger: logger}
}

type labelReply struct {
	CompetitionTypes []string `json:"competition_types"`
	DifficultyLevel  string   `json:"difficulty_level"`
}

// Classify returns raw labels as the model wrote them; callers normalize.
func (c *Classifier) Classify(ctx context.Context, title, description string) (domain.Labels, error) {
	if c == nil || c.llm == nil {
		return domain.Labels{}, domain.ErrNotConfigured
	}

	content, err := c.llm.Complete(ctx, labelPrompt(title, description), labelMaxTokens)
	if err != nil {
		return domain.Labels{}, fmt.Errorf("classify %q: %w", title, err)
	}

	var reply labelReply
	if err := decodeReply(content, &reply); err != nil {
		return domain.Labels{}, err
	}

	c.logger.Debug("labels assigned", "item", title, "types", reply.CompetitionTypes, "difficulty", reply.DifficultyLevel)
	return domain.Labels{Categories: reply.CompetitionTypes, Difficulty: reply.DifficultyLevel}, nil
}

// DetectDuplicate asks whether title repeats one of sample.
func (c *Classifier) DetectDuplicate(ctx context.Context, title, description string, sample []domain.Competition) (domain.Verdict, error) {
	if c == nil || c.llm == nil {
		return domain.Verdict{}, domain.ErrNotConfigured
	}

	content, err := c.llm.Complete(ctx, duplicatePrompt(title, description, sample), duplicateMaxTokens)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("detect duplicate %q: %w", title, err)
	}

	var verdict domain.Verdict
	if err := decodeReply(content, &verdict); err != nil {
		return domain.Verdict{}, err
	}
	verdict.Confidence = min(max(verdict.Confidence, 0), 1)

	c.logger.Debug("duplicate verdict", "item", title, "duplicate", verdict.IsDuplicate,
		"confidence", verdict.Confidence, "reason", verdict.Reason)
	return verdict, nil
}

// decodeReply tolerates code fences and prose around the JSON object.
func decodeReply(content string, out any) error {
	body := strings.TrimSpace(content)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)

	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("%w: classifier reply %q: %v", domain.ErrParse, textutil.Truncate(content, 200), err)
	}
	return nil
}

func labelPrompt(title, description string) string {
	return fmt.Sprintf(`
请分析以下比赛信息，并返回JSON格式的分类结果：

比赛名称：%s
比赛描述：%s

请根据以下标准进行分类：

比赛类型（可多选）：
- wibe coding: 编程、算法、代码相关比赛
- MCP: 多模态、跨平台、综合性技术比赛
- AI智能体: AI、机器学习、深度学习相关比赛
- AI视频: 视频处理、计算机视觉、多媒体相关比赛
- 其它: 不属于以上类别的比赛

难度等级（单选）：
- L1: 刚接触电脑，适合完全没有编程基础的初学者
- L2: 会用电脑，有基本的计算机操作能力
- L3: 对电脑比较熟练，有一定的编程和开发经验
- L4: 对电脑很熟悉，专业开发者或高级技术人员

请返回JSON格式：
{
  "competition_types": ["类型1", "类型2"],
  "difficulty_level": "L2"
}
`, title, description)
}

func duplicatePrompt(title, description string, sample []domain.Competition) string {
	summaries := make([]string, 0, len(sample))
	for _, rec := range sample {
		if rec.Title == "" {
			continue
		}
		summaries = append(summaries, fmt.Sprintf("标题: %s\n描述: %s...", rec.Title, textutil.Truncate(rec.Description, sampleDescRunes)))
	}

	return fmt.Sprintf(`
请分析以下新比赛是否与现有比赛重复。请考虑比赛的主题、内容、组织方等因素。

新比赛信息：
标题: %s
描述: %s

现有比赛信息：
%s

请返回JSON格式的分析结果：
{
  "is_duplicate": true/false,
  "confidence": 0.0-1.0,
  "most_similar_title": "最相似的比赛标题",
  "reason": "判断理由"
}

判断标准：
- 如果比赛主题、内容、时间完全相同，则为重复
- 如果只是名称相似但内容不同，则不重复
- 考虑比赛的具体领域和要求
`, title, description, strings.Join(summaries, "\n\n"))
}
