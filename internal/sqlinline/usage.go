package sqlinline

const QInsertUsageEvent = `--sql a6d39e81-54cb-4f07-bb12-7e9f08c4d3a5
insert into usage_events (id, user_id, used_at, month)
values (gen_random_uuid(), $1::text, now(), to_char(now(), 'YYYY-MM'));
`

const QCountMonthlyUsage = `--sql 29c7f5b6-8e02-4d19-93a8-fb61d4e07c24
select count(*)
from usage_events
where user_id = $1::text
  and month = $2::text;
`
