package trigger

import (
	"regexp"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/emotion"
)

// The pattern library is compiled once at init and never mutated.

type emotionGroup struct {
	label        emotion.Label
	patterns     []*regexp.Regexp
	intensifiers []string
}

type affectionGroup struct {
	trigger  affection.Trigger
	patterns []*regexp.Regexp
}

type cueGroup struct {
	trigger  emotion.Trigger
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var emotionGroups = []emotionGroup{
	{
		label: emotion.Bashful,
		patterns: compile(
			`부끄러|수줍|부끄|숨고싶|얼굴이빨개|부끄러워`,
			`창피|민망|부끄러움`,
		),
	},
	{
		label: emotion.Joy,
		patterns: compile(
			`기쁘|기뻐|좋아|행복|즐거|신나|웃음|하하|히히|ㅋㅋ|ㅎㅎ`,
			`최고|완전|대박|굉장|좋네|멋지|예뻐|사랑해`,
		),
		intensifiers: []string{"정말", "너무", "완전"},
	},
	{
		label: emotion.Sadness,
		patterns: compile(
			`슬프|우울|눈물|울|힘들|외로|아프|상처|속상|마음이`,
			`ㅠㅠ|ㅜㅜ|흑흑|안좋|걱정`,
		),
		intensifiers: []string{"많이", "너무", "정말"},
	},
	{
		label: emotion.Anger,
		patterns: compile(
			`화나|짜증|분노|열받|빡치|뭐야|이상해|싫어|최악|별로`,
			`그만|하지마|안해|기분나쁘`,
		),
	},
	{
		label: emotion.Surprise,
		patterns: compile(
			`어|헉|와|우와|대박|놀라|진짜|정말|어떻게|믿을수없|신기|wow`,
			`어머|깜짝|놀랐`,
		),
	},
	{
		label: emotion.Longing,
		patterns: compile(
			`설레|두근|심장|떨려|기대|멋져|예뻐|좋아해|사랑|로맨틱`,
			`달콤|따뜻|포근|특별|소중`,
		),
	},
}

var positiveGroups = []affectionGroup{
	{affection.Compliment, compile(
		`예뻐|이쁘|귀여|멋져|좋아|사랑해|완벽|최고|대단|훌륭`,
		`멋있|아름다|매력|특별|소중|따뜻|친절|착해`,
	)},
	{affection.RememberDetails, compile(
		`기억|생각|알아|저번에|전에 말한|말했던|얘기했던`,
		`카오루코|와구리|17살|고등학생|다도부`,
	)},
	{affection.RomanticGesture, compile(
		`사랑|데이트|만나|보고싶|그리워|함께|같이|키스|포옹|안아`,
		`선물|꽃|반지|목걸이|편지`,
	)},
	{affection.GiftMention, compile(
		`선물|줄게|사줄|받아|드릴|가져다|챙겨|준비했`,
		`꽃|케이크|초콜릿|반지|목걸이|인형|책`,
	)},
	{affection.DailyChat, compile(
		`안녕|좋은아침|잠깐|하루|오늘|어떻게|지내|인사`,
		`일어났어|자러가|굿나잇|잘자|또봐`,
	)},
}

var negativeGroups = []affectionGroup{
	{affection.RudeBehavior, compile(
		`바보|멍청|짜증|꺼져|닥쳐|시끄러|죽어|미워|싫어|최악`,
		`못생|더러|추해|별로|그만|하지마`,
	)},
	{affection.InappropriateContent, compile(
		`섹스|야동|19금|음란|변태|몸|가슴|다리|속옷`,
		`벗어|만져|키스해|자자|침대|모텔`,
	)},
	{affection.HarshWords, compile(
		`실망|화나|짜증나|상처|아프게|슬프게|기분나쁘`,
		`왜그래|이상해|문제|틀렸|잘못`,
	)},
}

var specialOccasionPatterns = compile(
	`생일|크리스마스|발렌타인|화이트데이|새해|졸업|입학|시험`,
	`축하|기념일|특별한날|중요한날`,
)

// cueGroups detect direct apology and comfort, which only feed the emotion
// machine.
var cueGroups = []cueGroup{
	{emotion.Apology, compile(`미안|죄송|잘못했|용서`)},
	{emotion.Comfort, compile(`괜찮아|힘내|위로|토닥|곁에 있`)},
}

var (
	positiveIntensifiers = []string{"정말", "너무", "완전", "진짜"}
	positiveHedges       = []string{"좀", "조금", "약간"}
	negativeIntensifiers = []string{"진짜", "정말", "완전", "너무"}

	firstMeetingWords = []string{"처음", "첫", "안녕하세요", "반가워"}
	goodbyeWords      = []string{"안녕", "잘가", "나중에", "또봐", "굿바이"}
	questionMarks     = []string{"?", "？"}
	questionWords     = []string{"뭐", "어떻게", "왜", "언제", "어디"}
)
