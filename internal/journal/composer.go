package journal

import (
	"fmt"
	"strings"
)

// WeekSummary is one completed earlier week's summary, used to carry context
// into later sessions.
type WeekSummary struct {
	Week    int
	Summary string
}

// Composer assembles system prompts from the static facilitation data. All
// methods are pure: identical inputs yield byte-identical output, and the
// modifier order is fixed (mode, length, prior info, prior summaries).
type Composer struct{}

func NewComposer() *Composer { return &Composer{} }

// Week returns the definition for a program week.
func (c *Composer) Week(week int) (WeekDefinition, error) {
	def, ok := weeklyConfig[week]
	if !ok {
		return WeekDefinition{}, fmt.Errorf("%w: %d", ErrUnknownWeek, week)
	}
	return def, nil
}

// Mode resolves a conversation mode, falling back to standard for
// unrecognized values. An explicit valid parameter always wins.
func (c *Composer) Mode(mode string) (string, ModeDefinition) {
	if def, ok := conversationModes[mode]; ok {
		return mode, def
	}
	return ModeStandard, conversationModes[ModeStandard]
}

// Length resolves a session length, falling back to medium.
func (c *Composer) Length(length string) (string, LengthDefinition) {
	if def, ok := sessionLengths[length]; ok {
		return length, def
	}
	return LengthMedium, sessionLengths[LengthMedium]
}

// Compose builds the initial system prompt for a session.
func (c *Composer) Compose(week int, mode, length, priorInfo string, priorSummaries []WeekSummary) (string, error) {
	def, err := c.Week(week)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(def.SystemPrompt)

	_, modeDef := c.Mode(mode)
	if modeDef.Modifier != "" {
		b.WriteString(modeDef.Modifier)
	}

	_, lengthDef := c.Length(length)
	b.WriteString(lengthDef.Modifier)

	if priorInfo != "" {
		b.WriteString("\n\n【参加者の事前情報】\n")
		b.WriteString(priorInfo)
	}

	if len(priorSummaries) > 0 {
		b.WriteString("\n\n【これまでのセッション要約】\n")
		for _, s := range priorSummaries {
			fmt.Fprintf(&b, "第%d週: %s\n", s.Week, s.Summary)
		}
	}

	return b.String(), nil
}

// FortuneBlock builds the system instruction enabling one divination style.
func (c *Composer) FortuneBlock(fortuneType, userName string) (string, error) {
	name, ok := fortuneTypes[fortuneType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFortuneType, fortuneType)
	}

	return fmt.Sprintf(`
【占いモード: %s】

あなたは%sの専門家でもあります。
参加者: %s

占いの進め方:
1. 必要な情報を自然に聞く
2. %sの手法に基づいて分析
3. 結果を分かりやすく、前向きに伝える
4. 仕事や人生に活かせる気づきを提供
5. 占いはあくまで自己理解のツールとして扱う

重要:
- 断定的な表現は避け、「〜かもしれません」「〜の傾向があります」という柔らかい表現を使う
- ネガティブな結果も、成長の機会として前向きに伝える
- 占いを楽しみながらも、自己理解を深めることを重視する
- 専門的すぎる用語は避け、分かりやすく説明する
`, name, name, userName, name), nil
}

// OmakaseBlock asks the agent to pick 2-3 suitable divination styles itself.
// The catalogue is listed in presentation order so the output is stable.
func (c *Composer) OmakaseBlock() string {
	var names strings.Builder
	for _, f := range fortuneOrder {
		names.WriteString("- ")
		names.WriteString(f.Name)
		names.WriteString("\n")
	}

	return fmt.Sprintf(`
【お任せ占いモード】

参加者が「お任せ占い」を選びました。
以下の占術の中から、これまでの対話や参加者の状況を踏まえて、
最も適切だと思われる2〜3種類の占術を選んでください。

利用可能な占術:
%s
選んだ占術とその理由を簡潔に説明してから、占いを始めてください。
例: 「あなたには西洋占星術とタロット占いが良さそうです。なぜなら...」
`, names.String())
}

// GreetingInstruction is the ephemeral opening instruction. It is sent to the
// completion service but never persisted into the transcript.
func (c *Composer) GreetingInstruction(userName, theme string) string {
	return fmt.Sprintf("セッションを開始してください。%sさんへの挨拶と、今週のテーマ「%s」について簡単に説明し、最初の質問をしてください。", userName, theme)
}

// FallbackGreeting is the stock opener used when the completion service is
// unavailable at session start.
func (c *Composer) FallbackGreeting(userName, theme string) string {
	return fmt.Sprintf("こんにちは、%sさん。今週のテーマは「%s」です。まずは、最近のご様子から聞かせていただけますか？", userName, theme)
}

// SummaryInstruction requests the end-of-session summary.
func (c *Composer) SummaryInstruction() string {
	return "今回のセッションの内容を200文字程度で要約してください。参加者の価値観、大切にしていること、気づきなどをまとめてください。"
}

// ArticleInstruction requests the end-of-session reflective article.
func (c *Composer) ArticleInstruction(theme, perspective, userName string) string {
	return fmt.Sprintf(`今回のセッションの内容を、読みやすく、心に残る記事形式にまとめてください。
参加者が後で読み返したときに、セッションでの気づきや大切なことを思い出せるようにしてください。

以下の形式でお願いします：

# タイトル（セッションの核心を表す、温かく前向きなタイトル）

## 今週のテーマ
%s（%sの視点）

## 対話のハイライト
このセッションで特に印象的だった対話や気づきを3-5項目で紹介してください。
- 参加者の言葉を大切にし、具体的なエピソードを含める
- 「なぜ？」を掘り下げた部分や、新たな気づきがあった瞬間を捉える
- 箇条書きまたは小見出しで整理

## %sさんの大切にしていること
このセッションで明らかになった価値観、大切にしていること、想いをまとめてください。
- 抽象的な言葉だけでなく、具体的な表現も含める
- 参加者の言葉をできるだけそのまま活かす
- 前週との繋がりがあれば言及する

## 気づきと発見
セッションを通じて得られた新たな視点や気づきをまとめてください。
- 参加者自身が発見したこと
- 対話の中で見えてきたパターンや傾向
- 今後に活かせそうな洞察

## 次への一歩
今後に向けてのヒントや、考えてみたいことを提案してください。
- 押し付けがましくなく、優しく提案する
- 次週のセッション（あれば）への期待を込める
- 温かく、希望を持てる言葉で締めくくる

**トーン**: 温かく、共感的で、前向き。参加者を応援する気持ちを込めて。`, theme, perspective, userName)
}

// ImagePrompt builds the illustration prompt for a completed session, keyed
// by the week's thematic perspective.
func (c *Composer) ImagePrompt(week int, perspective string) string {
	if p, ok := imagePrompts[perspective]; ok {
		return p
	}
	if def, ok := weeklyConfig[week]; ok {
		if p, ok := imagePrompts[def.Perspective]; ok {
			return p
		}
	}
	return imagePrompts["I"]
}
