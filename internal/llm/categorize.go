package llm

import "regexp"

// Category names a topic detected in a user message.
type Category string

const (
	CategoryGreetings   Category = "greetings"
	CategoryThanks      Category = "thanks"
	CategoryCode        Category = "code"
	CategoryReact       Category = "react"
	CategoryPerformance Category = "performance"
	CategoryDebugging   Category = "debugging"
	CategoryCSS         Category = "css"
	CategoryAPI         Category = "api"
	CategoryQuestions   Category = "questions"
	CategoryUnknown     Category = "unknown"
)

// CategoryRule maps a pattern to the canned responses for its category.
type CategoryRule struct {
	Category  Category
	Pattern   *regexp.Regexp
	Responses []string
}

// Categorizer resolves a message to the first matching rule. Rule order
// matters: specific topics must precede the generic question rule.
type Categorizer struct {
	rules   []CategoryRule
	unknown []string
}

// NewCategorizer builds a categorizer over rules, using unknown as the
// fallback pool.
func NewCategorizer(rules []CategoryRule, unknown []string) *Categorizer {
	return &Categorizer{rules: rules, unknown: unknown}
}

// DefaultCategorizer returns the built-in rule table.
func DefaultCategorizer() *Categorizer {
	return defaultCategorizer
}

// Categorize returns the category of the first rule whose pattern matches
// text, or CategoryUnknown.
func (c *Categorizer) Categorize(text string) Category {
	for _, rule := range c.rules {
		if rule.Pattern.MatchString(text) {
			return rule.Category
		}
	}
	return CategoryUnknown
}

// Responses returns the pool for cat, falling back to the unknown pool.
func (c *Categorizer) Responses(cat Category) []string {
	for _, rule := range c.rules {
		if rule.Category == cat && len(rule.Responses) > 0 {
			return rule.Responses
		}
	}
	return c.unknown
}

// Categories lists the categories in evaluation order.
func (c *Categorizer) Categories() []Category {
	out := make([]Category, 0, len(c.rules)+1)
	for _, rule := range c.rules {
		out = append(out, rule.Category)
	}
	return append(out, CategoryUnknown)
}

var defaultCategorizer = NewCategorizer([]CategoryRule{
	{
		Category: CategoryGreetings,
		Pattern:  regexp.MustCompile(`(?i)^\s*((hi|hello|hey|howdy|greetings|good (morning|afternoon|evening))\b|你好|您好)`),
		Responses: []string{
			"Hello! 👋 I'm your frontend assistant. Ask me about JavaScript, React, CSS, performance or debugging.",
			"Hi there! What are you building today? I can help with code, styling, APIs and more.",
			"Hey! Good to see you. Tell me what you're working on and I'll do my best to help.",
		},
	},
	{
		Category: CategoryThanks,
		Pattern:  regexp.MustCompile(`(?i)\b(thanks|thank you|thx|cheers|appreciate it)\b|谢谢`),
		Responses: []string{
			"You're welcome! Let me know if anything else comes up.",
			"Happy to help! Good luck with the project.",
			"Anytime. Feel free to come back with more questions.",
		},
	},
	{
		Category: CategoryCode,
		Pattern:  regexp.MustCompile(`(?i)\b(code|snippet|function|javascript|typescript|algorithm|example|implement|write (a|an|the|me))\b`),
		Responses: []string{
			"Here's a small example to start from:\n\n```js\nfunction debounce(fn, wait) {\n  let timer;\n  return (...args) => {\n    clearTimeout(timer);\n    timer = setTimeout(() => fn(...args), wait);\n  };\n}\n```\n\nTell me more about your use case and I can tailor it.",
			"A good approach is to keep functions small and pure. Share the code you have and I'll suggest concrete changes.",
			"Sure. Start by writing the function signature and a couple of test inputs, then fill in the logic step by step. Paste your attempt and I'll review it.",
		},
	},
	{
		Category: CategoryReact,
		Pattern:  regexp.MustCompile(`(?i)\b(react|jsx|component|props|usestate|useeffect|usememo|usecallback|hooks?|render\w*|re-render\w*)\b`),
		Responses: []string{
			"In React, unnecessary re-renders usually come from new object or function references passed as props. Try React.memo together with useMemo/useCallback.",
			"Keep state as close as possible to where it's used, and lift it up only when siblings need to share it.",
			"useEffect runs after render; list every value it reads in the dependency array, and return a cleanup function for subscriptions or timers.",
		},
	},
	{
		Category: CategoryPerformance,
		Pattern:  regexp.MustCompile(`(?i)\b(performance|slow|fast(er)?|optimi[sz]e|speed|lag|memory|bundle size|lighthouse)\b`),
		Responses: []string{
			"Measure first: record a profile in the browser's Performance panel and look for long tasks over 50ms.",
			"Common wins: code-split large routes, lazy-load images, and debounce expensive event handlers.",
			"Check bundle size with a bundle analyzer; large dependencies are often the biggest hidden cost.",
		},
	},
	{
		Category: CategoryDebugging,
		Pattern:  regexp.MustCompile(`(?i)\b(bug|error|debug\w*|exception|crash\w*|broken|not working|undefined|null|stack ?trace|fix)\b`),
		Responses: []string{
			"Start with the exact error message and stack trace; the first frame in your own code is usually where to look.",
			"Add a breakpoint or a console.log just before the failure and inspect the values you assume are set.",
			"Try to reduce it to the smallest reproduction. Half the time the bug becomes obvious along the way.",
		},
	},
	{
		Category: CategoryCSS,
		Pattern:  regexp.MustCompile(`(?i)\b(css|style|styling|flexbox|flex|grid|layout|responsive|animation|color|tailwind|sass|scss|margin|padding|center)\b`),
		Responses: []string{
			"To center something both ways, make the parent `display: flex; align-items: center; justify-content: center;`.",
			"For two-dimensional layouts reach for CSS Grid; for a single row or column, Flexbox is usually simpler.",
			"Use relative units and media queries (or container queries) to keep the layout responsive.",
		},
	},
	{
		Category: CategoryAPI,
		Pattern:  regexp.MustCompile(`(?i)\b(api|fetch|axios|http|https|request|endpoint|rest|graphql|cors|json|websocket)\b`),
		Responses: []string{
			"With fetch, remember that HTTP errors don't reject: check `response.ok` before calling `response.json()`.",
			"CORS errors are fixed on the server: it needs to send the right Access-Control-Allow-Origin header.",
			"Wrap API calls in a small client module so retries, auth headers and error handling live in one place.",
		},
	},
	{
		Category: CategoryQuestions,
		Pattern:  regexp.MustCompile(`(?i)\b(how|what|why|when|where|which|who|can you|could you|should i)\b|\?\s*$`),
		Responses: []string{
			"Good question! Could you share a bit more context, like what you've tried and what you expected to happen?",
			"It depends on the details. Tell me about your setup and constraints and I'll give you a specific answer.",
			"Let's break it down: what's the goal, what's happening now, and what have you tried so far?",
		},
	},
}, []string{
	"I'm not sure I understood that. Could you rephrase or add some detail?",
	"Interesting! Tell me more about what you're trying to achieve.",
	"I'm a mock assistant with canned answers. Try asking about JavaScript, React, CSS, APIs or performance.",
})
