package patterns

// Rules is the tier-1 rule table. Question ids and option values match the
// static tier-1 pool served by the question bank.
var Rules = []Rule{
	{"social_energy", "anxious_but_go", SocialAnxiety, 2},
	{"social_energy", "avoid_if_possible", SocialAnxiety, 3},
	{"social_energy", "avoid_if_possible", Avoidance, 1},

	{"task_start", "make_a_plan", Perfectionism, 1},
	{"task_start", "wait_for_pressure", ExecutiveFunction, 2},
	{"task_start", "wait_for_pressure", Avoidance, 1},
	{"task_start", "freeze", ExecutiveFunction, 3},
	{"task_start", "freeze", Avoidance, 2},

	{"criticism_response", "explain_myself", Defensiveness, 3},
	{"criticism_response", "shut_down", Defensiveness, 1},
	{"criticism_response", "shut_down", Avoidance, 1},
	{"criticism_response", "replay_it", Rumination, 2},

	{"mistake_reaction", "cant_let_go", Rumination, 2},
	{"mistake_reaction", "cant_let_go", Perfectionism, 1},
	{"mistake_reaction", "everything_ruined", AllOrNothingThinking, 3},

	{"emotional_weather", "sudden_storms", EmotionalDysregulation, 2},
	{"emotional_weather", "overwhelmed", EmotionalDysregulation, 3},

	{"night_mind", "replays_the_day", Rumination, 2},
	{"night_mind", "spirals", Rumination, 3},
	{"night_mind", "spirals", EmotionalDysregulation, 1},

	{"standards", "high_but_flexible", Perfectionism, 1},
	{"standards", "perfect_or_nothing", Perfectionism, 3},
	{"standards", "perfect_or_nothing", AllOrNothingThinking, 2},

	{"conflict_style", "keep_the_peace", Avoidance, 2},
	{"conflict_style", "blow_up", EmotionalDysregulation, 2},
	{"conflict_style", "blow_up", Defensiveness, 1},
	{"conflict_style", "go_quiet", Avoidance, 2},

	{"plans_change", "whole_day_off", AllOrNothingThinking, 2},
	{"plans_change", "whole_day_off", EmotionalDysregulation, 1},

	{"stress_signals", "racing_thoughts", Rumination, 1},
	{"stress_signals", "irritability", EmotionalDysregulation, 1},
	{"stress_signals", "procrastinating", ExecutiveFunction, 1},
	{"stress_signals", "procrastinating", Avoidance, 1},
	{"stress_signals", "withdrawing", SocialAnxiety, 1},
	{"stress_signals", "withdrawing", Avoidance, 1},
	{"stress_signals", "overworking", Perfectionism, 1},
}
